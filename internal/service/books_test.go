package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Ilyatxt/bookshop/internal/model"
	"github.com/Ilyatxt/bookshop/internal/repository"
)

type stubBookStore struct {
	book *model.Book
	err  error
}

func (s *stubBookStore) FindByID(ctx context.Context, q repository.Querier, id int64) (*model.Book, error) {
	return s.book, s.err
}

func TestBookByID_ReturnsCatalogBook(t *testing.T) {
	store := &stubBookStore{
		book: &model.Book{ID: 10, Title: "SICP", Price: decimal.RequireFromString("30.00"), Currency: model.CurrencyUSD},
	}
	svc := NewBookService(store)

	b, err := svc.ByID(context.Background(), nil, 10)
	if err != nil {
		t.Fatalf("ByID error: %v", err)
	}
	if b.ID != 10 || !b.Price.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("book = %+v, want id 10 with price 30.00", b)
	}
}

func TestBookByID_NotFound(t *testing.T) {
	store := &stubBookStore{err: repository.ErrBookNotFound}
	svc := NewBookService(store)

	_, err := svc.ByID(context.Background(), nil, 99)
	if !errors.Is(err, repository.ErrBookNotFound) {
		t.Fatalf("ByID error = %v, want ErrBookNotFound", err)
	}
}
