package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/restaurant-pos/models"
)

// TicketRepository is the persistence gateway for tickets, their line
// items and the tables they occupy. Transaction executes fn atomically;
// any repository call made with the context passed to fn joins the same
// transaction.
type TicketRepository interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	GetTicket(ctx context.Context, id uint) (*models.Ticket, error)
	SaveTicket(ctx context.Context, ticket *models.Ticket) error
	ListOpenTickets(ctx context.Context) ([]models.Ticket, error)
	CountOpenByTable(ctx context.Context, tableID uint, excludeTicketID uint) (int64, error)

	CreateItem(ctx context.Context, item *models.TicketItem) error
	GetItem(ctx context.Context, ticketID, itemID uint) (*models.TicketItem, error)
	SaveItem(ctx context.Context, item *models.TicketItem) error
	DeleteItem(ctx context.Context, item *models.TicketItem) error
	ItemsOf(ctx context.Context, ticketID uint) ([]models.TicketItem, error)
	NextPosition(ctx context.Context, ticketID uint) (int, error)
	ReassignItems(ctx context.Context, itemIDs []uint, toTicketID uint) error

	GetTable(ctx context.Context, id uint) (*models.Table, error)
	GetTableForUpdate(ctx context.Context, id uint) (*models.Table, error)
	SaveTable(ctx context.Context, table *models.Table) error

	GetProduct(ctx context.Context, id uint) (*models.Product, error)
}

type GormTicketRepository struct {
	db *gorm.DB
}

func NewGormTicketRepository(db *gorm.DB) *GormTicketRepository {
	return &GormTicketRepository{db: db}
}

func (r *GormTicketRepository) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	db := DBFromContext(ctx, r.db)
	return db.Transaction(func(tx *gorm.DB) error {
		return fn(withTxContext(ctx, tx))
	})
}

func (r *GormTicketRepository) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	return DBFromContext(ctx, r.db).Create(ticket).Error
}

func (r *GormTicketRepository) GetTicket(ctx context.Context, id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	err := DBFromContext(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		First(&ticket, id).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *GormTicketRepository) SaveTicket(ctx context.Context, ticket *models.Ticket) error {
	// Omit associations so saving a ticket never cascades into items;
	// item ownership changes only through the item methods.
	return DBFromContext(ctx, r.db).Omit(clause.Associations).Save(ticket).Error
}

func (r *GormTicketRepository) ListOpenTickets(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := DBFromContext(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		Where("status = ?", models.TicketStatusOpen).
		Order("created_at asc").
		Find(&tickets).Error
	return tickets, err
}

func (r *GormTicketRepository) CountOpenByTable(ctx context.Context, tableID uint, excludeTicketID uint) (int64, error) {
	var count int64
	err := DBFromContext(ctx, r.db).Model(&models.Ticket{}).
		Where("table_id = ? AND status = ? AND id <> ?", tableID, models.TicketStatusOpen, excludeTicketID).
		Count(&count).Error
	return count, err
}

func (r *GormTicketRepository) CreateItem(ctx context.Context, item *models.TicketItem) error {
	return DBFromContext(ctx, r.db).Omit("Ticket", "Product").Create(item).Error
}

func (r *GormTicketRepository) GetItem(ctx context.Context, ticketID, itemID uint) (*models.TicketItem, error) {
	var item models.TicketItem
	err := DBFromContext(ctx, r.db).
		Where("ticket_id = ?", ticketID).
		First(&item, itemID).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormTicketRepository) SaveItem(ctx context.Context, item *models.TicketItem) error {
	return DBFromContext(ctx, r.db).Omit("Ticket", "Product").Save(item).Error
}

func (r *GormTicketRepository) DeleteItem(ctx context.Context, item *models.TicketItem) error {
	return DBFromContext(ctx, r.db).Delete(item).Error
}

func (r *GormTicketRepository) ItemsOf(ctx context.Context, ticketID uint) ([]models.TicketItem, error) {
	var items []models.TicketItem
	err := DBFromContext(ctx, r.db).
		Where("ticket_id = ?", ticketID).
		Order("position asc").
		Find(&items).Error
	return items, err
}

func (r *GormTicketRepository) NextPosition(ctx context.Context, ticketID uint) (int, error) {
	var max int
	err := DBFromContext(ctx, r.db).Model(&models.TicketItem{}).
		Where("ticket_id = ?", ticketID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// ReassignItems transfers ownership of the given items to another ticket.
// All remaining fields, including the preparation status, are untouched.
func (r *GormTicketRepository) ReassignItems(ctx context.Context, itemIDs []uint, toTicketID uint) error {
	return DBFromContext(ctx, r.db).Model(&models.TicketItem{}).
		Where("id IN ?", itemIDs).
		Update("ticket_id", toTicketID).Error
}

func (r *GormTicketRepository) GetTable(ctx context.Context, id uint) (*models.Table, error) {
	var table models.Table
	if err := DBFromContext(ctx, r.db).First(&table, id).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

// GetTableForUpdate takes a row lock on the table so concurrent creates
// against the same table serialize; two calls for one free table can
// never both observe it free. SQLite has no FOR UPDATE and serializes
// writers on its own, so the clause is skipped there.
func (r *GormTicketRepository) GetTableForUpdate(ctx context.Context, id uint) (*models.Table, error) {
	db := DBFromContext(ctx, r.db)
	if db.Dialector.Name() != "sqlite" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var table models.Table
	if err := db.First(&table, id).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *GormTicketRepository) SaveTable(ctx context.Context, table *models.Table) error {
	return DBFromContext(ctx, r.db).Save(table).Error
}

func (r *GormTicketRepository) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := DBFromContext(ctx, r.db).First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
