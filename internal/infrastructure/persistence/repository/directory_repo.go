package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const userColumns = `u.id, u.company_id, u.username, u.first_name, u.last_name, u.email,
	u.role, u.manager_id, u.lark_open_id, u.created_at`

// DirectoryRepository implements port.Directory over the users and companies tables
type DirectoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(db *sql.DB, logger *zap.Logger) *DirectoryRepository {
	return &DirectoryRepository{
		db:     db,
		logger: logger,
	}
}

// GetUser returns nil, nil when the user does not exist
func (r *DirectoryRepository) GetUser(ctx context.Context, userID int64) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = ?`
	return r.getUser(ctx, "user", query, userID)
}

// GetManager returns the user's manager, or nil, nil when there is none
func (r *DirectoryRepository) GetManager(ctx context.Context, userID int64) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users e JOIN users u ON u.id = e.manager_id WHERE e.id = ?`
	return r.getUser(ctx, "manager", query, userID)
}

// GetCompanyAdmin returns the company's lowest-ID admin, or nil, nil
func (r *DirectoryRepository) GetCompanyAdmin(ctx context.Context, companyID int64) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u
		WHERE u.company_id = ? AND u.role = 'ADMIN'
		ORDER BY u.id ASC
		LIMIT 1`
	return r.getUser(ctx, "admin", query, companyID)
}

// GetCompany returns nil, nil when the company does not exist
func (r *DirectoryRepository) GetCompany(ctx context.Context, companyID int64) (*entity.Company, error) {
	query := `SELECT id, name, default_currency, created_at FROM companies WHERE id = ?`

	var company entity.Company
	err := sqlite.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, companyID).Scan(
		&company.ID,
		&company.Name,
		&company.DefaultCurrency,
		&company.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get company", zap.Int64("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &company, nil
}

// CreateCompany inserts a company and sets its ID
func (r *DirectoryRepository) CreateCompany(ctx context.Context, company *entity.Company) error {
	if company.CreatedAt.IsZero() {
		company.CreatedAt = time.Now().UTC()
	}

	result, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO companies (name, default_currency, created_at) VALUES (?, ?, ?)`,
		company.Name,
		company.DefaultCurrency,
		company.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create company", zap.String("name", company.Name), zap.Error(err))
		return fmt.Errorf("failed to create company: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	company.ID = id
	return nil
}

// CreateUser inserts a user and sets its ID
func (r *DirectoryRepository) CreateUser(ctx context.Context, user *entity.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	var managerID sql.NullInt64
	if user.ManagerID != nil {
		managerID = sql.NullInt64{Int64: *user.ManagerID, Valid: true}
	}

	result, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO users (
			company_id, username, first_name, last_name, email,
			role, manager_id, lark_open_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.CompanyID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Role,
		managerID,
		user.LarkOpenID,
		user.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("username", user.Username), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	return nil
}

func (r *DirectoryRepository) getUser(ctx context.Context, lookup, query string, arg int64) (*entity.User, error) {
	var (
		user      entity.User
		managerID sql.NullInt64
	)
	err := sqlite.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.CompanyID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Role,
		&managerID,
		&user.LarkOpenID,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to look up user", zap.String("lookup", lookup), zap.Int64("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get %s: %w", lookup, err)
	}

	if managerID.Valid {
		id := managerID.Int64
		user.ManagerID = &id
	}
	return &user, nil
}

var _ port.Directory = (*DirectoryRepository)(nil)
