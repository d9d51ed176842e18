package service

import (
	"context"
	"errors"

	"github.com/Ilyatxt/bookshop/internal/model"
	"github.com/Ilyatxt/bookshop/internal/repository"
)

// ErrInvalidQuantity возвращается при попытке сохранить позицию с неположительным количеством.
var ErrInvalidQuantity = errors.New("entry quantity must be positive")

// EntryStore описывает контракт хранилища позиций заказа, используемый сервисами.
type EntryStore interface {
	FindByOrderID(ctx context.Context, q repository.Querier, orderID int64) ([]model.OrderEntry, error)
	FindByID(ctx context.Context, q repository.Querier, id int64) (*model.OrderEntry, error)
	Save(ctx context.Context, q repository.Querier, e *model.OrderEntry) error
	SaveAll(ctx context.Context, q repository.Querier, entries []model.OrderEntry) error
	Update(ctx context.Context, q repository.Querier, e *model.OrderEntry) error
	DeleteByID(ctx context.Context, q repository.Querier, id int64) (bool, error)
	DeleteByOrderID(ctx context.Context, q repository.Querier, orderID int64) (int64, error)
}

// EntryService реализует операции над позициями заказа.
type EntryService struct {
	entries EntryStore
}

// NewEntryService создаёт сервис позиций заказа.
func NewEntryService(entries EntryStore) *EntryService {
	return &EntryService{entries: entries}
}

// ByOrderID возвращает все позиции указанного заказа.
func (s *EntryService) ByOrderID(ctx context.Context, q repository.Querier, orderID int64) ([]model.OrderEntry, error) {
	return s.entries.FindByOrderID(ctx, q, orderID)
}

// ByID возвращает позицию по идентификатору.
func (s *EntryService) ByID(ctx context.Context, q repository.Querier, id int64) (*model.OrderEntry, error) {
	return s.entries.FindByID(ctx, q, id)
}

// Create сохраняет одну позицию заказа.
func (s *EntryService) Create(ctx context.Context, q repository.Querier, e *model.OrderEntry) error {
	if e.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return s.entries.Save(ctx, q, e)
}

// CreateAll сохраняет набор позиций, проставляя идентификаторы на месте.
func (s *EntryService) CreateAll(ctx context.Context, q repository.Querier, entries []model.OrderEntry) error {
	for i := range entries {
		if entries[i].Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return s.entries.SaveAll(ctx, q, entries)
}

// Update полностью заменяет строку позиции.
func (s *EntryService) Update(ctx context.Context, q repository.Querier, e *model.OrderEntry) error {
	if e.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return s.entries.Update(ctx, q, e)
}

// Delete удаляет позицию и сообщает, существовала ли она.
func (s *EntryService) Delete(ctx context.Context, q repository.Querier, id int64) (bool, error) {
	return s.entries.DeleteByID(ctx, q, id)
}

// DeleteByOrderID удаляет все позиции заказа и возвращает их количество.
func (s *EntryService) DeleteByOrderID(ctx context.Context, q repository.Querier, orderID int64) (int64, error) {
	return s.entries.DeleteByOrderID(ctx, q, orderID)
}
