package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"food-delivery/platform/config"
	"food-delivery/platform/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cfg config.PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

const orderColumns = `id, customer_name, customer_phone, delivery_address, items,
	total_amount, driver_id, status, driver_earnings, created_at, accepted_at, delivered_at`

func (s *PostgresStore) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO orders (
			id, customer_name, customer_phone, delivery_address, items,
			total_amount, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		order.ID, order.CustomerName, order.CustomerPhone, order.DeliveryAddress,
		order.Items, order.TotalAmount, order.Status, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating order: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *PostgresStore) GetOrders(ctx context.Context) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	return s.queryOrders(ctx, query)
}

func (s *PostgresStore) GetOrdersByDriver(ctx context.Context, driverID string) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE driver_id = $1`
	return s.queryOrders(ctx, query, driverID)
}

func (s *PostgresStore) queryOrders(ctx context.Context, query string, args ...interface{}) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (s *PostgresStore) UpdateOrder(ctx context.Context, id string, patch OrderPatch) (*models.Order, error) {
	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.DriverID != nil {
		add("driver_id", *patch.DriverID)
	}
	if patch.DriverEarnings != nil {
		add("driver_earnings", *patch.DriverEarnings)
	}
	if patch.AcceptedAt != nil {
		add("accepted_at", *patch.AcceptedAt)
	}
	if patch.DeliveredAt != nil {
		add("delivered_at", *patch.DeliveredAt)
	}
	if len(set) == 0 {
		return s.GetOrder(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE orders SET %s WHERE id = $%d RETURNING `+orderColumns,
		strings.Join(set, ", "), len(args))

	order, err := scanOrder(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("error updating order: %w", err)
	}
	return order, nil
}

// AssignOrder is the compare-and-swap accept: the WHERE clause only
// matches while the order is still confirmed and driverless, so a
// concurrent accept loses cleanly instead of double-assigning.
func (s *PostgresStore) AssignOrder(ctx context.Context, orderID, driverID, earnings string, acceptedAt time.Time) (*models.Order, error) {
	query := `
		UPDATE orders
		SET driver_id = $1, status = $2, driver_earnings = $3, accepted_at = $4
		WHERE id = $5 AND status = $6 AND driver_id IS NULL
		RETURNING ` + orderColumns

	order, err := scanOrder(s.db.QueryRowContext(ctx, query,
		driverID, models.OrderStatusReady, earnings, acceptedAt,
		orderID, models.OrderStatusConfirmed,
	))
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("error assigning order: %w", err)
	}

	// No row matched: tell an unknown order apart from a taken one.
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return nil, ErrOrderTaken
}

func (s *PostgresStore) CreateDriver(ctx context.Context, driver *models.Driver) error {
	if driver.ID == "" {
		driver.ID = uuid.New().String()
	}
	if driver.CreatedAt.IsZero() {
		driver.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO drivers (id, name, phone, email, is_available, current_location, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query,
		driver.ID, driver.Name, driver.Phone, driver.Email,
		driver.IsAvailable, driver.CurrentLocation, driver.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating driver: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	query := `
		SELECT id, name, phone, email, is_available, current_location, created_at
		FROM drivers WHERE id = $1`

	var driver models.Driver
	var email, location sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&driver.ID, &driver.Name, &driver.Phone, &email,
		&driver.IsAvailable, &location, &driver.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}
	driver.Email = email.String
	driver.CurrentLocation = location.String
	return &driver, nil
}

func (s *PostgresStore) UpdateDriver(ctx context.Context, id string, patch DriverPatch) (*models.Driver, error) {
	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Phone != nil {
		add("phone", *patch.Phone)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.CurrentLocation != nil {
		add("current_location", *patch.CurrentLocation)
	}
	if patch.IsAvailable != nil {
		add("is_available", *patch.IsAvailable)
	}
	if len(set) == 0 {
		return s.GetDriver(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE drivers SET %s WHERE id = $%d
		RETURNING id, name, phone, email, is_available, current_location, created_at`,
		strings.Join(set, ", "), len(args))

	var driver models.Driver
	var email, location sql.NullString
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&driver.ID, &driver.Name, &driver.Phone, &email,
		&driver.IsAvailable, &location, &driver.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDriverNotFound
		}
		return nil, fmt.Errorf("error updating driver: %w", err)
	}
	driver.Email = email.String
	driver.CurrentLocation = location.String
	return &driver, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var driverID, earnings sql.NullString
	var acceptedAt, deliveredAt sql.NullTime

	err := row.Scan(
		&order.ID, &order.CustomerName, &order.CustomerPhone, &order.DeliveryAddress,
		&order.Items, &order.TotalAmount, &driverID, &order.Status, &earnings,
		&order.CreatedAt, &acceptedAt, &deliveredAt,
	)
	if err != nil {
		return nil, err
	}
	order.DriverID = driverID.String
	order.DriverEarnings = earnings.String
	if acceptedAt.Valid {
		t := acceptedAt.Time
		order.AcceptedAt = &t
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		order.DeliveredAt = &t
	}
	return &order, nil
}
