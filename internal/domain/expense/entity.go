package expense

import "time"

type Category string

const (
	CategoryFuel      Category = "fuel"
	CategoryParking   Category = "parking"
	CategoryMeal      Category = "meal"
	CategoryTransport Category = "transport"
	CategoryOther     Category = "other"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryFuel, CategoryParking, CategoryMeal, CategoryTransport, CategoryOther:
		return true
	}
	return false
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Expense struct {
	ID          string
	CrewID      string
	EventID     *string
	Date        time.Time
	Category    Category
	Amount      float64
	Description *string
	ReceiptPath *string
	Status      Status
	CreatedAt   time.Time
}
