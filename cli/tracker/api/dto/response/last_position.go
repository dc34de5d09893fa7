package response

type LastPosition struct {
	BusID     string  `json:"busId"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Timestamp int64   `json:"ts"`
}
