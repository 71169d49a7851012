package klarna

// Services bundles the per-area service facades over one shared client.
type Services struct {
	Client          *Client
	Payments        *PaymentsService
	CustomerTokens  *CustomerTokensService
	OrderManagement *OrderManagementService
	Disputes        *DisputesService
	Distribution    *DistributionService
	HPP             *HPPService
}

// NewServices wires every service facade to the given client.
func NewServices(client *Client) *Services {
	return &Services{
		Client:          client,
		Payments:        NewPaymentsService(client),
		CustomerTokens:  NewCustomerTokensService(client),
		OrderManagement: NewOrderManagementService(client),
		Disputes:        NewDisputesService(client),
		Distribution:    NewDistributionService(client),
		HPP:             NewHPPService(client),
	}
}
