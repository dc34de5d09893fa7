package request

// UpdatePosition — тело REST-отчета водителя. Координаты объявлены
// указателями, чтобы отличать отсутствующее поле от нуля.
type UpdatePosition struct {
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lng"`
	Timestamp int64    `json:"timestamp"`
}
