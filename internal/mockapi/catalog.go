package mockapi

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jogardn/orders-client/pkg/models"
)

type SKU struct {
	ID          string
	Price       int64
	Currency    string
	Description string
}

// Coupon takes either PercentOff or AmountOff off the SKU subtotal.
type Coupon struct {
	ID         string
	PercentOff int64
	AmountOff  int64
	Currency   string
}

func (c Coupon) discount(subtotal int64, currency string) int64 {
	// Percentages round half away from zero to the nearest minor unit.
	if c.PercentOff > 0 {
		return decimal.NewFromInt(subtotal).
			Mul(decimal.NewFromInt(c.PercentOff)).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	}
	if c.Currency != "" && c.Currency != currency {
		return 0
	}
	return min(c.AmountOff, subtotal)
}

type Customer struct {
	ID            string `json:"id"`
	Object        string `json:"object"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Phone         string `json:"phone,omitempty"`
	DefaultSource string `json:"default_source,omitempty"`
}

type shippingOption struct {
	id          string
	amount      int64
	description string
	minDays     int
	maxDays     int
}

// Catalog holds the products, coupons and customers orders refer to.
type Catalog struct {
	skus      map[string]SKU
	coupons   map[string]Coupon
	customers map[string]Customer
	shipping  []shippingOption
	mutex     sync.RWMutex
}

// DefaultCatalog returns a catalog with a few USD products and coupons.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		skus:      make(map[string]SKU),
		coupons:   make(map[string]Coupon),
		customers: make(map[string]Customer),
		shipping: []shippingOption{
			{id: "ship_free", amount: 0, description: "Free shipping", minDays: 5, maxDays: 7},
			{id: "ship_express", amount: 500, description: "Express shipping", minDays: 2, maxDays: 2},
		},
	}

	for _, sku := range []SKU{
		{ID: "sku_tshirt", Price: 1500, Currency: "usd", Description: "T-shirt"},
		{ID: "sku_mug", Price: 1000, Currency: "usd", Description: "Coffee mug"},
		{ID: "sku_hoodie", Price: 4500, Currency: "usd", Description: "Hoodie"},
		{ID: "sku_sticker", Price: 200, Currency: "usd", Description: "Sticker pack"},
		{ID: "sku_poster", Price: 2000, Currency: "eur", Description: "Poster"},
	} {
		c.AddSKU(sku)
	}
	c.AddCoupon(Coupon{ID: "SAVE10", PercentOff: 10})
	c.AddCoupon(Coupon{ID: "FIVEOFF", AmountOff: 500, Currency: "usd"})

	return c
}

func (c *Catalog) AddSKU(sku SKU) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.skus[sku.ID] = sku
}

func (c *Catalog) SKU(id string) (SKU, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	sku, ok := c.skus[id]
	return sku, ok
}

// SKUs returns the catalog's products in the given currency.
func (c *Catalog) SKUs(currency string) []SKU {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var skus []SKU
	for _, sku := range c.skus {
		if sku.Currency == currency {
			skus = append(skus, sku)
		}
	}
	sort.Slice(skus, func(i, j int) bool { return skus[i].ID < skus[j].ID })
	return skus
}

func (c *Catalog) AddCoupon(coupon Coupon) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.coupons[coupon.ID] = coupon
}

func (c *Catalog) Coupon(id string) (Coupon, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	coupon, ok := c.coupons[id]
	return coupon, ok
}

func (c *Catalog) AddCustomer(customer Customer) {
	customer.Object = "customer"
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.customers[customer.ID] = customer
}

func (c *Catalog) Customer(id string) (Customer, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	customer, ok := c.customers[id]
	return customer, ok
}

// ShippingMethods lists the methods offered for an order placed at now.
func (c *Catalog) ShippingMethods(currency string, now time.Time) []models.ShippingMethod {
	methods := make([]models.ShippingMethod, 0, len(c.shipping))
	for _, opt := range c.shipping {
		estimate := models.DeliveryEstimate{Type: models.DeliveryEstimateRange}
		if opt.minDays == opt.maxDays {
			estimate.Type = models.DeliveryEstimateExact
			estimate.Date = models.String(day(now, opt.minDays))
		} else {
			estimate.Earliest = models.String(day(now, opt.minDays))
			estimate.Latest = models.String(day(now, opt.maxDays))
		}

		methods = append(methods, models.ShippingMethod{
			ID:               opt.id,
			Amount:           opt.amount,
			Currency:         currency,
			Description:      opt.description,
			DeliveryEstimate: models.NullableOf(estimate),
		})
	}
	return methods
}

func day(now time.Time, offset int) string {
	return now.AddDate(0, 0, offset).UTC().Format(time.DateOnly)
}
