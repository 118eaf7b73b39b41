package event

type Created struct {
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Reference  string `json:"reference"`
	MethodType string `json:"methodType"`
	StoreID    string `json:"storeId"`
	SessionID  string `json:"sessionId"`
}

type Processing struct {
	CheckoutID string `json:"checkoutId"`
}

type Completed struct {
	CheckoutID string `json:"checkoutId"`
	PaymentID  string `json:"paymentId"`
}

type Failed struct {
	CheckoutID string `json:"checkoutId"`
	PaymentID  string `json:"paymentId,omitempty"`
	Reason     string `json:"reason"`
}

type Cancelled struct {
	Reason string `json:"reason"`
}

type Attempt struct {
	CheckoutID string `json:"checkoutId"`
	Provider   string `json:"provider"`
	CardLast4  string `json:"cardLast4"`
}

type Refunded struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (Created) Type() Type    { return TransactionCreated }
func (Processing) Type() Type { return TransactionProcessing }
func (Completed) Type() Type  { return TransactionCompleted }
func (Failed) Type() Type     { return TransactionFailed }
func (Cancelled) Type() Type  { return TransactionCancelled }
func (Attempt) Type() Type    { return PaymentAttempt }
func (Refunded) Type() Type   { return Refund }

func (Created) isData()    {}
func (Processing) isData() {}
func (Completed) isData()  {}
func (Failed) isData()     {}
func (Cancelled) isData()  {}
func (Attempt) isData()    {}
func (Refunded) isData()   {}
