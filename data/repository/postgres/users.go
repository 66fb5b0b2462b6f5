package postgres

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/crypto_vault_tracker/data/repository"
	"github.com/KotFed0t/crypto_vault_tracker/internal/converter/dbConverter"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model/dbModel"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
)

const userColumns = `id, email, full_name, password_hash, role, is_status, created_at, updated_at`

// userSearch matches every row for an empty search, otherwise email or full name by substring.
const userSearch = `($1 = '' OR email ILIKE '%' || $1 || '%' OR full_name ILIKE '%' || $1 || '%')`

func (p *Postgres) InsertUser(ctx context.Context, user model.User) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO users (email, full_name, password_hash, role, is_status) VALUES ($1, $2, $3, $4, TRUE) RETURNING id`

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.InsertUser"))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.InsertUser"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.InsertUser"))
		}
	}()

	err = p.txOrDb(ctx).QueryRowxContext(ctx, query, user.Email, user.FullName, user.PasswordHash, string(user.Role)).Scan(&userID)
	if err != nil {
		return 0, mapErr(err)
	}

	return userID, nil
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return p.getUser(ctx, "Postgres.GetUserByEmail", `WHERE email = $1`, email)
}

func (p *Postgres) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	return p.getUser(ctx, "Postgres.GetUserByID", `WHERE id = $1`, id)
}

func (p *Postgres) getUser(ctx context.Context, op, where string, arg any) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT ` + userColumns + ` FROM users ` + where

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	row := dbModel.User{}
	if err = p.txOrDb(ctx).QueryRowxContext(ctx, query, arg).StructScan(&row); err != nil {
		return model.User{}, mapErr(err)
	}

	return dbConverter.ConvertUser(row), nil
}

// ListUsers returns one page of users, newest first, and the number of rows matching the filter.
func (p *Postgres) ListUsers(ctx context.Context, filter model.UserFilter) (users []model.User, total int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	countQuery := `SELECT count(*) FROM users WHERE ` + userSearch
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + userSearch + ` ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.ListUsers"), slog.String("search", filter.Search))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.ListUsers"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.ListUsers"), slog.Int("rows", len(users)))
		}
	}()

	if err = p.txOrDb(ctx).GetContext(ctx, &total, countQuery, filter.Search); err != nil {
		return nil, 0, mapErr(err)
	}

	var rows []dbModel.User
	if err = p.txOrDb(ctx).SelectContext(ctx, &rows, query, filter.Search, filter.Limit, filter.Offset); err != nil {
		return nil, 0, mapErr(err)
	}

	users = make([]model.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, dbConverter.ConvertUser(row))
	}

	return users, total, nil
}

// UpdateUser applies the non-nil fields of patch and returns the stored row.
func (p *Postgres) UpdateUser(ctx context.Context, id int64, patch model.UserPatch) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		UPDATE users SET
			email = COALESCE($2, email),
			full_name = COALESCE($3, full_name),
			role = COALESCE($4, role),
			password_hash = COALESCE($5, password_hash),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.UpdateUser"), slog.Int64("userID", id))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.UpdateUser"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.UpdateUser"))
		}
	}()

	var role *string
	if patch.Role != nil {
		r := string(*patch.Role)
		role = &r
	}

	row := dbModel.User{}
	err = p.txOrDb(ctx).QueryRowxContext(ctx, query, id, patch.Email, patch.FullName, role, patch.PasswordHash).StructScan(&row)
	if err != nil {
		return model.User{}, mapErr(err)
	}

	return dbConverter.ConvertUser(row), nil
}

// SetUserStatus switches is_status; a deactivated user can no longer sign in.
func (p *Postgres) SetUserStatus(ctx context.Context, id int64, active bool) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `UPDATE users SET is_status = $2, updated_at = now() WHERE id = $1`

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.SetUserStatus"), slog.Int64("userID", id))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.SetUserStatus"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.SetUserStatus"))
		}
	}()

	res, err := p.txOrDb(ctx).ExecContext(ctx, query, id, active)
	if err != nil {
		return mapErr(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
