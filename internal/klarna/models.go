package klarna

// Monetary fields throughout this package are integers in minor currency
// units (cents). The provider expects total_amount == unit_price * quantity
// on each line and order_amount == sum of line totals; neither is enforced
// locally — the server is authoritative.

// OrderLine is a single line item in a session or order.
type OrderLine struct {
	Type           string `json:"type"`
	Reference      string `json:"reference"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	QuantityUnit   string `json:"quantity_unit"`
	UnitPrice      int64  `json:"unit_price"`
	TaxRate        int    `json:"tax_rate"`
	TotalAmount    int64  `json:"total_amount"`
	TotalTaxAmount int64  `json:"total_tax_amount"`
}

// SessionRequest is the body for creating a payment session.
type SessionRequest struct {
	PurchaseCountry  string      `json:"purchase_country"`
	PurchaseCurrency string      `json:"purchase_currency"`
	Locale           string      `json:"locale"`
	OrderAmount      int64       `json:"order_amount"`
	OrderTaxAmount   int64       `json:"order_tax_amount"`
	OrderLines       []OrderLine `json:"order_lines"`
	Intent           string      `json:"intent,omitempty"`
}

// SessionResponse is returned from session creation. The client token is
// provider-issued and secret-bearing; it is handed to the rendering
// component, never logged.
type SessionResponse struct {
	ClientToken             string                  `json:"client_token"`
	SessionID               string                  `json:"session_id,omitempty"`
	PaymentMethodCategories []PaymentMethodCategory `json:"payment_method_categories,omitempty"`
}

// PaymentMethodCategory is a payment method available for a session.
type PaymentMethodCategory struct {
	Identifier string     `json:"identifier"`
	Name       string     `json:"name,omitempty"`
	AssetURLs  *AssetURLs `json:"asset_urls,omitempty"`
}

// AssetURLs carry payment method branding images.
type AssetURLs struct {
	Standard    string `json:"standard,omitempty"`
	Descriptive string `json:"descriptive,omitempty"`
}

// OrderRequest is the body for creating an order from an authorization.
// The optional merchant reference is an idempotency/tracing aid.
type OrderRequest struct {
	PurchaseCountry    string      `json:"purchase_country"`
	PurchaseCurrency   string      `json:"purchase_currency"`
	Locale             string      `json:"locale"`
	OrderAmount        int64       `json:"order_amount"`
	OrderTaxAmount     int64       `json:"order_tax_amount"`
	OrderLines         []OrderLine `json:"order_lines"`
	MerchantReference1 string      `json:"merchant_reference1,omitempty"`
}

// OrderResponse is returned from order creation. OrderID is the primary
// identifier for all post-order operations.
type OrderResponse struct {
	OrderID                 string                   `json:"order_id"`
	FraudStatus             string                   `json:"fraud_status,omitempty"`
	AuthorizedPaymentMethod *AuthorizedPaymentMethod `json:"authorized_payment_method,omitempty"`
	RedirectURL             string                   `json:"redirect_url,omitempty"`
}

// AuthorizedPaymentMethod describes the payment method the customer chose.
type AuthorizedPaymentMethod struct {
	Type                 string `json:"type,omitempty"`
	NumberOfInstallments int    `json:"number_of_installments,omitempty"`
}

// Customer carries optional customer details on token creation requests.
type Customer struct {
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	GivenName   string `json:"given_name,omitempty"`
	FamilyName  string `json:"family_name,omitempty"`
}

// Address is a billing or shipping address.
type Address struct {
	StreetAddress  string `json:"street_address,omitempty"`
	StreetAddress2 string `json:"street_address2,omitempty"`
	PostalCode     string `json:"postal_code,omitempty"`
	City           string `json:"city,omitempty"`
	Region         string `json:"region,omitempty"`
	Country        string `json:"country,omitempty"`
}
