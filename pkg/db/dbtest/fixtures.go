package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
)

// Customer is a seeded user with one delivery address.
type Customer struct {
	User    models.User
	Address models.Address
}

// SeedCustomer inserts a customer and an address in Lima.
func SeedCustomer(t testing.TB, conn *gorm.DB) Customer {
	t.Helper()
	phone := "+51 987 654 321"
	user := models.User{
		Email:     uuid.NewString() + "@fresaterra.test",
		FirstName: "Lucia",
		LastName:  "Huaman",
		Phone:     &phone,
		Role:      enums.UserRoleCustomer,
	}
	mustCreate(t, conn, &user)
	address := models.Address{
		UserID:     user.ID,
		Line1:      "Jr. Ucayali 455",
		City:       "Lima",
		Region:     "Lima",
		PostalCode: "15001",
		Country:    "PE",
	}
	mustCreate(t, conn, &address)
	return Customer{User: user, Address: address}
}

// SeedProduct inserts an active product with stock units on hand.
func SeedProduct(t testing.TB, conn *gorm.DB, name string, price string, stock int) models.Product {
	t.Helper()
	product := models.Product{
		Name:        name,
		WeightGrams: 500,
		Category:    "berries",
		Price:       decimal.RequireFromString(price),
		IsActive:    true,
	}
	mustCreate(t, conn, &product)
	mustCreate(t, conn, &models.InventoryRecord{
		ProductID:    product.ID,
		AvailableQty: stock,
		Status:       enums.InventoryStatusFor(stock),
	})
	return product
}

// SeedCarrier inserts an active carrier at position.
func SeedCarrier(t testing.TB, conn *gorm.DB, name string, position int) models.Carrier {
	t.Helper()
	carrier := models.Carrier{Name: name, Position: position, IsActive: true}
	mustCreate(t, conn, &carrier)
	return carrier
}

// Line describes one product line of a seeded order.
type Line struct {
	Product  models.Product
	Quantity int
}

// SeedPendingOrder inserts a pending order with its line items and one pending
// payment, as checkout would.
func SeedPendingOrder(t testing.TB, conn *gorm.DB, customer Customer, createdAt time.Time, lines ...Line) (models.Order, models.Payment) {
	t.Helper()
	total := decimal.Zero
	items := make([]models.OrderLineItem, 0, len(lines))
	for _, line := range lines {
		subtotal := line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(subtotal)
		items = append(items, models.OrderLineItem{
			ProductID:   line.Product.ID,
			Quantity:    line.Quantity,
			UnitPrice:   line.Product.Price,
			Subtotal:    subtotal,
			ProductName: line.Product.Name,
			WeightGrams: line.Product.WeightGrams,
			Category:    line.Product.Category,
		})
	}
	order := models.Order{
		UserID:    customer.User.ID,
		AddressID: customer.Address.ID,
		Total:     total,
		Status:    enums.OrderStatusPending,
		LineItems: items,
	}
	if !createdAt.IsZero() {
		order.CreatedAt = createdAt
	}
	mustCreate(t, conn, &order)

	ref := "sq-order-" + order.ID.String()[:8]
	payment := models.Payment{
		OrderID:         order.ID,
		Amount:          total,
		Status:          enums.PaymentStatusPending,
		GatewayOrderRef: &ref,
	}
	mustCreate(t, conn, &payment)
	return order, payment
}

func mustCreate(t testing.TB, conn *gorm.DB, value any) {
	t.Helper()
	if err := conn.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}
