package quote

import (
	"math"
	"time"
)

const (
	StatusSuccess            = "success"
	StatusRegionNotAvailable = "region_not_available"

	regionNotAvailableMessage = "Região de entrega não atendida por nossos serviços"
)

// Prefixos de CEP atendidos (primeiro dígito).
var servedPrefixes = map[byte]struct{}{'0': {}, '1': {}, '3': {}, '4': {}, '8': {}}

// AvailableRegions devolve as regiões anunciadas em toda cotação.
func AvailableRegions() []string {
	return []string{"sudeste", "sul", "centro-oeste"}
}

// RegionAvailable olha só o primeiro caractere do CEP de destino.
func RegionAvailable(cep string) bool {
	if cep == "" {
		return false
	}
	_, ok := servedPrefixes[cep[0]]
	return ok
}

type Request struct {
	Origin        string
	Destination   string
	Weight        float64
	Length        float64
	Width         float64
	Height        float64
	DeclaredValue float64
	// ServiceType "all" ou "express" inclui o serviço expresso.
	ServiceType string
}

func (r Request) wantsExpress() bool {
	return r.ServiceType == "all" || r.ServiceType == "express"
}

type DeliveryTime struct {
	MinDays       int    `json:"min_days"`
	MaxDays       int    `json:"max_days"`
	EstimatedDate string `json:"estimated_date"`
}

type Service struct {
	Code         string       `json:"service_code"`
	Name         string       `json:"service_name"`
	Price        float64      `json:"price"`
	DeliveryTime DeliveryTime `json:"delivery_time"`
	Restrictions []string     `json:"restrictions"`
}

// Result é uma cotação pronta, sem a telemetria de cota (o handler anexa).
type Result struct {
	Status           string    `json:"status"`
	QuoteID          string    `json:"quote_id"`
	Message          string    `json:"message,omitempty"`
	Services         []Service `json:"services,omitempty"`
	AvailableRegions []string  `json:"available_regions,omitempty"`
}

type Calculator struct {
	ids IntN
	now func() time.Time
}

type CalculatorOption func(*Calculator)

func WithIDSource(src IntN) CalculatorOption {
	return func(c *Calculator) { c.ids = src }
}

func WithNow(now func() time.Time) CalculatorOption {
	return func(c *Calculator) { c.now = now }
}

func NewCalculator(opts ...CalculatorOption) *Calculator {
	c := &Calculator{ids: SystemRand{}, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Quote monta a resposta para um pedido já validado.
func (c *Calculator) Quote(req Request) Result {
	id := NewQuoteID(c.ids)

	if !RegionAvailable(req.Destination) {
		return Result{
			Status:  StatusRegionNotAvailable,
			QuoteID: id,
			Message: regionNotAvailableMessage,
		}
	}

	standard, express := Prices(req)
	today := c.now().UTC()

	services := []Service{{
		Code:  "MS-STD",
		Name:  "Standard",
		Price: standard,
		DeliveryTime: DeliveryTime{
			MinDays:       2,
			MaxDays:       3,
			EstimatedDate: formatDate(today.AddDate(0, 0, 3)),
		},
		Restrictions: []string{},
	}}
	if req.wantsExpress() {
		services = append(services, Service{
			Code:  "MS-EXP",
			Name:  "Express",
			Price: express,
			DeliveryTime: DeliveryTime{
				MinDays:       1,
				MaxDays:       1,
				EstimatedDate: formatDate(today.AddDate(0, 0, 1)),
			},
			Restrictions: []string{},
		})
	}

	return Result{
		Status:           StatusSuccess,
		QuoteID:          id,
		Services:         services,
		AvailableRegions: AvailableRegions(),
	}
}

// Prices aplica a fórmula: volume em litros a 0.5, peso a 10 por kg e
// taxa fixa de 20. O expresso custa 1.6x o padrão já arredondado.
func Prices(req Request) (standard, express float64) {
	volume := req.Length * req.Width * req.Height / 1000
	standard = round2(volume*0.5 + req.Weight*10 + 20)
	express = round2(standard * 1.6)
	return standard, express
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
