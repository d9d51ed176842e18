// Package model содержит доменные сущности книжного магазина.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User представляет зарегистрированного пользователя магазина.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Currency описывает валюту заказа или цены книги.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// OrderStatus описывает статус обработки заказа.
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "NEW"
	OrderStatusInProcess OrderStatus = "IN_PROCESS"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusDeclined  OrderStatus = "DECLINED"
)

// IsTerminal сообщает, является ли статус конечным: из PAID и DECLINED переходов нет.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusDeclined
}

// CanTransitionTo проверяет допустимость перехода в указанный статус.
// Разрешённые переходы: NEW -> IN_PROCESS, NEW/IN_PROCESS -> PAID или DECLINED.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch next {
	case OrderStatusInProcess:
		return s == OrderStatusNew
	case OrderStatusPaid, OrderStatusDeclined:
		return s == OrderStatusNew || s == OrderStatusInProcess
	default:
		return false
	}
}

// Order описывает заказ пользователя.
// Позиции загружаются отдельно и заполняются фасадом по запросу.
type Order struct {
	ID         int64
	UserID     int64
	OrderDate  time.Time
	OrderCode  string
	TotalPrice decimal.Decimal
	Currency   Currency
	Status     OrderStatus
	Entries    []OrderEntry
}

// IsOpen сообщает, является ли заказ актуальным (не оплачен и не отклонён).
func (o *Order) IsOpen() bool {
	return !o.Status.IsTerminal()
}

// OrderEntry описывает одну позицию заказа: книгу, количество и цену на момент добавления.
type OrderEntry struct {
	ID        int64
	OrderID   int64
	BookID    int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// LineTotal возвращает стоимость позиции: цена за единицу, умноженная на количество.
func (e *OrderEntry) LineTotal() decimal.Decimal {
	return e.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// EntriesTotal суммирует стоимость всех позиций заказа.
func EntriesTotal(entries []OrderEntry) decimal.Decimal {
	total := decimal.Zero
	for i := range entries {
		total = total.Add(entries[i].LineTotal())
	}
	return total
}

// Book описывает книгу каталога в объёме, необходимом подсистеме заказов.
type Book struct {
	ID        int64
	Title     string
	Price     decimal.Decimal
	Currency  Currency
	CreatedAt time.Time
}
