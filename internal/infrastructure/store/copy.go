package store

import (
	"time"

	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/discount"
	"github.com/example/ec-storefront/internal/domain/inventory"
	"github.com/example/ec-storefront/internal/domain/order"
)

func copyStrings(s []string) []string {
	return append([]string{}, s...)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func copyProduct(p *inventory.Product) *inventory.Product {
	cp := *p
	cp.Images = copyStrings(p.Images)
	cp.CategoryIDs = copyStrings(p.CategoryIDs)
	return &cp
}

func copyDiscount(d *discount.Discount) *discount.Discount {
	cp := *d
	if d.MaxDiscountAmount != nil {
		v := *d.MaxDiscountAmount
		cp.MaxDiscountAmount = &v
	}
	if d.UsageLimit != nil {
		v := *d.UsageLimit
		cp.UsageLimit = &v
	}
	cp.ApplicableProducts = copyStrings(d.ApplicableProducts)
	cp.ApplicableCategories = copyStrings(d.ApplicableCategories)
	return &cp
}

func copyOrder(o *order.Order) *order.Order {
	cp := *o
	cp.Items = append([]order.LineItem{}, o.Items...)
	cp.DeliveryDate = copyTime(o.DeliveryDate)
	return &cp
}

func copyCart(c *cart.Cart) *cart.Cart {
	cp := *c
	cp.Items = append([]cart.LineItem{}, c.Items...)
	cp.Adjustments = append([]cart.Adjustment(nil), c.Adjustments...)
	return &cp
}
