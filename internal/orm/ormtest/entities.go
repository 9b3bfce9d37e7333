// Package ormtest holds entity fixtures shared by the ORM package tests.
package ormtest

import (
	"time"

	"github.com/google/uuid"

	"github.com/conduit-lang/daokit/internal/orm/schema"
)

// Person is a cached entity with a serial key
type Person struct {
	ID   int64
	Name string
	Age  int
}

func (Person) Mapping() *schema.Mapping {
	return schema.Map[Person](
		schema.Column("id", func(p *Person) *int64 { return &p.ID }, schema.PK(), schema.Serial()),
		schema.Column("name", func(p *Person) *string { return &p.Name }),
		schema.Column("age", func(p *Person) *int { return &p.Age }),
	).Cache(true)
}

// Account covers every declared value type and nullable columns
type Account struct {
	ID       uuid.UUID
	Email    string
	Active   bool
	Balance  float64
	Rate     float32
	Level    int16
	Visits   int64
	Opened   time.Time
	Nickname *string
	Closed   *time.Time
}

func (Account) Mapping() *schema.Mapping {
	return schema.Map[Account](
		schema.Column("id", func(a *Account) *uuid.UUID { return &a.ID }, schema.PK()),
		schema.Column("email", func(a *Account) *string { return &a.Email }, schema.Unique(), schema.NotNull(), schema.Length(120)),
		schema.Column("active", func(a *Account) *bool { return &a.Active }, schema.Default("1")),
		schema.Column("balance", func(a *Account) *float64 { return &a.Balance }),
		schema.Column("rate", func(a *Account) *float32 { return &a.Rate }),
		schema.Column("level", func(a *Account) *int16 { return &a.Level }),
		schema.Column("visits", func(a *Account) *int64 { return &a.Visits }),
		schema.Column("opened", func(a *Account) *time.Time { return &a.Opened }, schema.Name("opened_at")),
		schema.NullableColumn("nickname", func(a *Account) **string { return &a.Nickname }),
		schema.NullableColumn("closed", func(a *Account) **time.Time { return &a.Closed }, schema.Name("closed_at")),
	)
}

// Order has a composite key and a foreign key to Person
type Order struct {
	Region     string
	Number     int64
	CustomerID int64
	Total      float64
	Note       *string

	Customer *Person
}

func (Order) Mapping() *schema.Mapping {
	return schema.Map[Order](
		schema.Column("region", func(o *Order) *string { return &o.Region }, schema.PK(), schema.Length(8)),
		schema.Column("number", func(o *Order) *int64 { return &o.Number }, schema.PK()),
		schema.Column("customerId", func(o *Order) *int64 { return &o.CustomerID },
			schema.Name("customer_id"),
			schema.Index(),
			schema.References(func(o *Order, p *Person) { o.Customer = p }),
		),
		schema.Column("total", func(o *Order) *float64 { return &o.Total }),
		schema.NullableColumn("note", func(o *Order) **string { return &o.Note }, schema.SQLType("TEXT")),
	).Table("orders").Cache(true)
}

// Audit is an ancestor whose fields are spliced into Document
type Audit struct {
	CreatedBy string
	Revision  int16
}

func (Audit) Mapping() *schema.Mapping {
	return schema.Map[Audit](
		schema.Column("createdBy", func(a *Audit) *string { return &a.CreatedBy }, schema.Name("created_by")),
		schema.Column("revision", func(a *Audit) *int16 { return &a.Revision }, schema.Default("0")),
	)
}

// Document embeds Audit and keys on a virtual tenant column
type Document struct {
	Audit
	Code   string
	Tenant string
	Title  string
}

func (Document) Mapping() *schema.Mapping {
	return schema.Map[Document](
		schema.Column("code", func(d *Document) *string { return &d.Code }, schema.PK(), schema.Length(32)),
		schema.Column("tenant", func(d *Document) *string { return &d.Tenant }, schema.VirtualPK()),
		schema.Column("title", func(d *Document) *string { return &d.Title }),
		schema.Inherit(func(d *Document) *Audit { return &d.Audit }),
	).Table("docs")
}

// Plain is not an entity
type Plain struct {
	ID int
}

// Strp returns a pointer to s
func Strp(s string) *string {
	return &s
}
