package store

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/model"
)

// orderDoc is the row shape for SQL deployments: one JSON document per order
// per (side, list) collection, mirroring the document-store layout.
type orderDoc struct {
	Side string `gorm:"primaryKey;size:8"`
	List string `gorm:"primaryKey;size:16"`
	ID   string `gorm:"primaryKey;size:80"`
	Doc  []byte `gorm:"type:bytes"`
}

func (orderDoc) TableName() string { return "order_docs" }

// GormStore is a SQL-backed Store for deployments that already run sqlite or
// postgres instead of an embedded key-value store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore connects using the given driver ("sqlite" or "postgres") and
// DSN, and migrates the order_docs table.
func NewGormStore(driver, dsn string) (*GormStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown sql driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", driver, err)
	}
	if err := db.AutoMigrate(&orderDoc{}); err != nil {
		return nil, fmt.Errorf("migrating order_docs: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) LoadAll(ctx context.Context, side model.Side, list model.ListID) ([]*model.Order, error) {
	var rows []orderDoc
	err := s.db.WithContext(ctx).
		Where("side = ? AND list = ?", string(side), string(list)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading %s/%s orders: %w", side, list, err)
	}
	orders := make([]*model.Order, 0, len(rows))
	for _, r := range rows {
		var o model.Order
		if err := json.Unmarshal(r.Doc, &o); err != nil {
			return nil, fmt.Errorf("decoding order %s: %w", r.ID, err)
		}
		orders = append(orders, &o)
	}
	return orders, nil
}

func (s *GormStore) Upsert(ctx context.Context, side model.Side, list model.ListID, order *model.Order) error {
	doc, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encoding order %s: %w", order.ID, err)
	}
	row := orderDoc{Side: string(side), List: string(list), ID: order.ID, Doc: doc}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *GormStore) Delete(ctx context.Context, side model.Side, list model.ListID, id string) error {
	return s.db.WithContext(ctx).
		Delete(&orderDoc{}, "side = ? AND list = ? AND id = ?", string(side), string(list), id).Error
}

func (s *GormStore) ActiveSellOrdersByCollections(ctx context.Context, addrs []string) ([]*model.Order, error) {
	if err := checkBatch(addrs); err != nil {
		return nil, err
	}
	all, err := s.LoadAll(ctx, model.SideSell, model.ListValidActive)
	if err != nil {
		return nil, err
	}
	var out []*model.Order
	for _, o := range all {
		if touchesAny(o, addrs) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
