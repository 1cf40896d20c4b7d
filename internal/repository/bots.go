package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
)

const botColumns = `id, name, description, bot_type, model, temperature, max_tokens, system_prompt, is_active, created_by, created_at, updated_at`

// CreateBot creates a new bot and sets its ID.
func (s *SQLStore) CreateBot(ctx context.Context, bot *domain.Bot) error {
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`INSERT INTO bots (name, description, bot_type, model, temperature, max_tokens, system_prompt, is_active, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		bot.Name, bot.Description, bot.BotType, bot.Model, bot.Temperature, bot.MaxTokens, bot.SystemPrompt,
		bot.IsActive, bot.CreatedBy, bot.CreatedAt, bot.UpdatedAt).Scan(&bot.ID)
	if err != nil {
		return fmt.Errorf("failed to insert bot: %w", err)
	}
	return nil
}

// GetBot retrieves a bot by ID.
func (s *SQLStore) GetBot(ctx context.Context, botID int64) (*domain.Bot, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+botColumns+` FROM bots WHERE id = ?`), botID)
	bot, err := scanBot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return bot, nil
}

// ListBots lists all bots.
func (s *SQLStore) ListBots(ctx context.Context) ([]domain.Bot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+botColumns+` FROM bots ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []domain.Bot
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		bots = append(bots, *bot)
	}
	return bots, rows.Err()
}

// UpdateBot overwrites the mutable fields of a bot.
func (s *SQLStore) UpdateBot(ctx context.Context, bot *domain.Bot) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`UPDATE bots SET name = ?, description = ?, bot_type = ?, model = ?, temperature = ?, max_tokens = ?,
		 system_prompt = ?, is_active = ?, updated_at = ? WHERE id = ?`),
		bot.Name, bot.Description, bot.BotType, bot.Model, bot.Temperature, bot.MaxTokens,
		bot.SystemPrompt, bot.IsActive, bot.UpdatedAt, bot.ID)
	if err != nil {
		return fmt.Errorf("failed to update bot: %w", err)
	}
	return expectOne(res, "bot", bot.ID)
}

// DeleteBot deletes a bot together with its scenarios, steps and executions.
func (s *SQLStore) DeleteBot(ctx context.Context, botID int64) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`DELETE FROM bots WHERE id = ?`), botID)
	if err != nil {
		return fmt.Errorf("failed to delete bot: %w", err)
	}
	return expectOne(res, "bot", botID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBot(row rowScanner) (*domain.Bot, error) {
	var bot domain.Bot
	err := row.Scan(&bot.ID, &bot.Name, &bot.Description, &bot.BotType, &bot.Model, &bot.Temperature,
		&bot.MaxTokens, &bot.SystemPrompt, &bot.IsActive, &bot.CreatedBy, &bot.CreatedAt, &bot.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

func expectOne(res sql.Result, kind string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound(kind, id)
	}
	return nil
}
