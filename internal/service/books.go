package service

import (
	"context"

	"github.com/Ilyatxt/bookshop/internal/model"
	"github.com/Ilyatxt/bookshop/internal/repository"
)

// BookStore описывает контракт каталога книг, используемый подсистемой заказов.
// Каталог ведётся снаружи, подсистеме заказов нужны только цены и валюта.
type BookStore interface {
	FindByID(ctx context.Context, q repository.Querier, id int64) (*model.Book, error)
}

// BookService предоставляет цены и валюту книг подсистеме заказов.
type BookService struct {
	books BookStore
}

// NewBookService создаёт сервис каталога книг.
func NewBookService(books BookStore) *BookService {
	return &BookService{books: books}
}

// ByID возвращает книгу по идентификатору.
func (s *BookService) ByID(ctx context.Context, q repository.Querier, id int64) (*model.Book, error) {
	return s.books.FindByID(ctx, q, id)
}
