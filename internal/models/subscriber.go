package models

// Subscriber - получатель оповещений из внешнего справочника
type Subscriber struct {
	Name      string  `json:"name" yaml:"name"`
	Email     string  `json:"email" yaml:"email"`
	Phone     string  `json:"phone" yaml:"phone"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Hotspot - центр кластера инцидентов и число инцидентов в нем
type Hotspot struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Count int     `json:"count"`
}
