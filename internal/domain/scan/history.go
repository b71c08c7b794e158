package scan

// HistoryEntry is one row of the user's remote scan history.
type HistoryEntry struct {
	ScanID       string `json:"scanId"`
	ProductID    string `json:"productId"`
	ProductName  string `json:"productName"`
	ProductImage string `json:"productImage"`
}
