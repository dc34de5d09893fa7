package request

type IssueToken struct {
	BusID    string `json:"busId"`
	DriverID string `json:"driverId"`
}
