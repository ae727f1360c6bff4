package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IDs are assigned app-side so inserts behave the same on Postgres and on the
// sqlite driver the tests run against. Explicitly set IDs are kept.

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (b *Buyer) BeforeCreate(*gorm.DB) error { ensureID(&b.ID); return nil }

func (c *Cart) BeforeCreate(*gorm.DB) error { ensureID(&c.ID); return nil }

func (c *CartItem) BeforeCreate(*gorm.DB) error { ensureID(&c.ID); return nil }

func (n *Notification) BeforeCreate(*gorm.DB) error { ensureID(&n.ID); return nil }

func (o *Order) BeforeCreate(*gorm.DB) error { ensureID(&o.ID); return nil }

func (i *OrderLineItem) BeforeCreate(*gorm.DB) error { ensureID(&i.ID); return nil }

func (p *PlatformConfig) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }

func (p *Product) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }

func (p *PromoCode) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }

func (u *PromoCodeUsage) BeforeCreate(*gorm.DB) error { ensureID(&u.ID); return nil }

func (s *Seller) BeforeCreate(*gorm.DB) error { ensureID(&s.ID); return nil }

func (s *Settlement) BeforeCreate(*gorm.DB) error { ensureID(&s.ID); return nil }
