package service

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go-mini-commerce/internal/apperr"
	"go-mini-commerce/internal/event"
	"go-mini-commerce/internal/model"
	"go-mini-commerce/internal/repository"
	"go-mini-commerce/internal/ws"
	"go-mini-commerce/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogService owns the product records and their stock counters.
// AdjustStock and ApplyOrderDeduction are the only stock mutation paths and
// both run under row locks, so stock can never be observed negative.
type CatalogService interface {
	CreateProduct(req *model.Product) error
	ListProducts() ([]model.Product, error)
	GetProduct(id uuid.UUID) (*model.Product, error)
	UpdateProduct(id uuid.UUID, req *model.Product) (*model.Product, error)
	DeleteProduct(id uuid.UUID) error
	AdjustStock(id uuid.UUID, delta int) (*model.Product, error)
	ApplyOrderDeduction(evt event.OrderCreated) (event.StockResult, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
	ledger      repository.AdjustmentRepository
	db          *gorm.DB
	wsHub       *ws.Hub
}

func NewCatalogService(pRepo repository.ProductRepository, ledger repository.AdjustmentRepository, db *gorm.DB, hub *ws.Hub) CatalogService {
	return &catalogService{
		productRepo: pRepo,
		ledger:      ledger,
		db:          db,
		wsHub:       hub,
	}
}

func (s *catalogService) CreateProduct(req *model.Product) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return validationError(errs)
	}

	if err := s.productRepo.Create(req); err != nil {
		return apperr.Wrap(apperr.KindPersistence, "create product", err)
	}

	s.wsHub.BroadcastJSON(map[string]interface{}{
		"type":   "stock_update",
		"action": "product_created",
		"product": map[string]interface{}{
			"id":    req.ID,
			"name":  req.Name,
			"stock": req.Stock,
			"price": req.Price,
		},
	})
	return nil
}

func (s *catalogService) ListProducts() ([]model.Product, error) {
	products, err := s.productRepo.FindAll()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "list products", err)
	}
	return products, nil
}

func (s *catalogService) GetProduct(id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		return nil, wrapDBErr(err, "product not found")
	}
	return product, nil
}

func (s *catalogService) UpdateProduct(id uuid.UUID, req *model.Product) (*model.Product, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	var updated *model.Product
	err := s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.productRepo.FindForUpdate(tx, id)
		if err != nil {
			return wrapDBErr(err, "product not found")
		}

		oldStock := existing.Stock
		existing.Name = req.Name
		existing.Description = req.Description
		existing.Price = req.Price
		existing.Stock = req.Stock
		existing.ImageURL = req.ImageURL

		if err := tx.Save(existing).Error; err != nil {
			return apperr.Wrap(apperr.KindPersistence, "update product", err)
		}
		updated = existing

		s.wsHub.BroadcastJSON(map[string]interface{}{
			"type":   "stock_update",
			"action": "product_updated",
			"product": map[string]interface{}{
				"id":        existing.ID,
				"name":      existing.Name,
				"old_stock": oldStock,
				"new_stock": existing.Stock,
				"price":     existing.Price,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *catalogService) DeleteProduct(id uuid.UUID) error {
	if _, err := s.productRepo.FindByID(id); err != nil {
		return wrapDBErr(err, "product not found")
	}
	if err := s.productRepo.Delete(id); err != nil {
		return apperr.Wrap(apperr.KindPersistence, "delete product", err)
	}
	return nil
}

// AdjustStock applies a signed delta in one transaction. The row stays
// locked between the read and the write, so concurrent adjustments against
// the same product serialize instead of losing updates.
func (s *catalogService) AdjustStock(id uuid.UUID, delta int) (*model.Product, error) {
	if delta == 0 {
		return nil, apperr.New(apperr.KindValidation, "delta must be a non-zero integer")
	}

	var updated *model.Product
	err := s.db.Transaction(func(tx *gorm.DB) error {
		product, err := s.productRepo.FindForUpdate(tx, id)
		if err != nil {
			return wrapDBErr(err, "product not found")
		}

		newStock := product.Stock + delta
		if newStock < 0 {
			return apperr.Newf(apperr.KindConflict,
				"not enough stock for product %s: available %d, requested change %d",
				id, product.Stock, delta)
		}

		if err := s.productRepo.UpdateStock(tx, product.ID, newStock); err != nil {
			return apperr.Wrap(apperr.KindPersistence, "update stock", err)
		}

		oldStock := product.Stock
		product.Stock = newStock
		updated = product

		s.wsHub.BroadcastJSON(map[string]interface{}{
			"type":   "stock_update",
			"action": "stock_adjusted",
			"product": map[string]interface{}{
				"id":        product.ID,
				"name":      product.Name,
				"old_stock": oldStock,
				"new_stock": newStock,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ApplyOrderDeduction processes an order.created event: all-or-nothing per
// order. Every referenced product is locked (in a stable order), every line
// is validated, and only when all pass is any stock deducted. The ledger
// rows commit in the same transaction, so a redelivered event re-emits the
// stored outcome instead of deducting twice.
func (s *catalogService) ApplyOrderDeduction(evt event.OrderCreated) (event.StockResult, error) {
	prior, err := s.ledger.FindByOrderAndReason(evt.OrderID, model.ReasonOrderCreated)
	if err != nil {
		return event.StockResult{}, apperr.Wrap(apperr.KindPersistence, "read adjustment ledger", err)
	}
	if len(prior) > 0 {
		return resultFromLedger(evt.OrderID, prior), nil
	}

	var results []event.ItemResult
	var allOK bool
	err = s.db.Transaction(func(tx *gorm.DB) error {
		products := make(map[uuid.UUID]*model.Product)
		for _, id := range sortedProductIDs(evt.Items) {
			product, err := s.productRepo.FindForUpdate(tx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue // reported per-item by the planner
				}
				return err
			}
			products[id] = product
		}

		results, allOK = planDeduction(products, evt.Items)

		if allOK {
			deducted := make(map[uuid.UUID]int)
			for _, res := range results {
				deducted[res.ProductID] += res.Quantity
			}
			for id, qty := range deducted {
				product := products[id]
				if err := s.productRepo.UpdateStock(tx, id, product.Stock-qty); err != nil {
					return err
				}
			}
		}

		status := model.AdjustmentRejected
		if allOK {
			status = model.AdjustmentApplied
		}
		rows := make([]model.StockAdjustment, 0, len(results))
		for _, res := range results {
			rows = append(rows, model.StockAdjustment{
				OrderID:   evt.OrderID,
				ProductID: res.ProductID,
				Delta:     -res.Quantity,
				Reason:    model.ReasonOrderCreated,
				Status:    status,
				Message:   res.Message,
			})
		}
		return s.ledger.CreateAll(tx, rows)
	})
	if err != nil {
		return event.StockResult{}, apperr.Wrap(apperr.KindPersistence, "apply order deduction", err)
	}

	result := buildStockResult(evt.OrderID, results, allOK)
	if allOK {
		s.wsHub.BroadcastJSON(map[string]interface{}{
			"type":     "stock_update",
			"action":   "order_deducted",
			"order_id": evt.OrderID,
			"items":    results,
		})
	}
	return result, nil
}

// planDeduction validates every line against the locked products. When all
// lines pass, every result has OK=true and empty Message. When any fails,
// nothing is applied: failing lines carry their reason and passing lines are
// marked not-applied.
func planDeduction(products map[uuid.UUID]*model.Product, lines []event.OrderLine) ([]event.ItemResult, bool) {
	remaining := make(map[uuid.UUID]int, len(products))
	for id, product := range products {
		remaining[id] = product.Stock
	}

	messages := make([]string, len(lines))
	allOK := true
	for i, line := range lines {
		product, exists := products[line.ProductID]
		switch {
		case line.Quantity <= 0:
			// The queue is an open channel; a crafted negative quantity
			// would otherwise add stock instead of deducting it.
			messages[i] = fmt.Sprintf("invalid quantity %d for product %s", line.Quantity, line.ProductID)
			allOK = false
		case !exists:
			messages[i] = fmt.Sprintf("product %s not found", line.ProductID)
			allOK = false
		case remaining[line.ProductID] < line.Quantity:
			messages[i] = fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
				line.ProductID, product.Stock, line.Quantity)
			allOK = false
		default:
			remaining[line.ProductID] -= line.Quantity
		}
	}

	results := make([]event.ItemResult, len(lines))
	for i, line := range lines {
		res := event.ItemResult{ProductID: line.ProductID, Quantity: line.Quantity, OK: allOK}
		if !allOK {
			if messages[i] != "" {
				res.Message = messages[i]
			} else {
				res.Message = "not applied: order rejected"
			}
		}
		results[i] = res
	}
	return results, allOK
}

func sortedProductIDs(lines []event.OrderLine) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			ids = append(ids, line.ProductID)
		}
	}
	// Stable lock order avoids deadlocks between concurrent orders.
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func buildStockResult(orderID uuid.UUID, items []event.ItemResult, allOK bool) event.StockResult {
	result := event.StockResult{
		OrderID:   orderID,
		Items:     items,
		Status:    event.StatusFailure,
		Message:   "stock update failed for some items",
		Timestamp: time.Now().UTC(),
	}
	if allOK {
		result.Status = event.StatusSuccess
		result.Message = "stock deducted for all items"
	}
	return result
}

func resultFromLedger(orderID uuid.UUID, rows []model.StockAdjustment) event.StockResult {
	items := make([]event.ItemResult, 0, len(rows))
	allOK := true
	for _, row := range rows {
		ok := row.Status == model.AdjustmentApplied
		if !ok {
			allOK = false
		}
		items = append(items, event.ItemResult{
			ProductID: row.ProductID,
			Quantity:  -row.Delta,
			OK:        ok,
			Message:   row.Message,
		})
	}
	return buildStockResult(orderID, items, allOK)
}
