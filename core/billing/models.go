package billing

const StatusApproved = "approved"

type (
	Payment struct {
		ID                int64  `json:"id"`
		Status            string `json:"status"`
		ExternalReference string `json:"external_reference"`
		AdditionalInfo    struct {
			Items []PaymentItem `json:"items"`
		} `json:"additional_info"`
	}

	PaymentItem struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}

	Item struct {
		ID        string  `json:"id"`
		Title     string  `json:"title"`
		UnitPrice float64 `json:"unit_price"`
		Quantity  int     `json:"quantity"`
	}

	Payer struct {
		Email string `json:"email"`
	}

	BackURLs struct {
		Success string `json:"success"`
		Failure string `json:"failure"`
		Pending string `json:"pending"`
	}

	Preference struct {
		Items             []Item   `json:"items"`
		Payer             Payer    `json:"payer"`
		ExternalReference string   `json:"external_reference"`
		BackURLs          BackURLs `json:"back_urls"`
		AutoReturn        string   `json:"auto_return,omitempty"`
	}

	PreferenceResult struct {
		ID        string `json:"id"`
		InitPoint string `json:"init_point"`
	}
)

// FirstItemID returns the id of the first item paid for, "" when there is none.
func (p Payment) FirstItemID() string {
	if len(p.AdditionalInfo.Items) == 0 {
		return ""
	}
	return p.AdditionalInfo.Items[0].ID
}
