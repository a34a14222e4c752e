package postgres

import (
	"context"
	"fmt"

	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RPG REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RPGRepository implements the level table and bonus level ports for
// PostgreSQL.
type RPGRepository struct {
	conn *Connection
}

// NewRPGRepository creates a new RPGRepository.
func NewRPGRepository(conn *Connection) *RPGRepository {
	return &RPGRepository{conn: conn}
}

// Compile-time interface checks.
var (
	_ rpg.LevelRepository       = (*RPGRepository)(nil)
	_ rpg.BonusLevelRepository  = (*RPGRepository)(nil)
	_ rpg.BonusUnlockRepository = (*RPGRepository)(nil)
)

// GetTable loads the full table of named level thresholds.
func (r *RPGRepository) GetTable(ctx context.Context) (*rpg.LevelTable, error) {
	query := `SELECT threshold, name FROM levels ORDER BY threshold`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load levels: %w", err)
	}
	defer rows.Close()

	var levels []rpg.Level
	for rows.Next() {
		var l rpg.Level
		if err := rows.Scan(&l.Threshold, &l.Name); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		levels = append(levels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate levels: %w", err)
	}
	return rpg.NewLevelTable(levels), nil
}

// ListUpTo returns bonus levels with a threshold at or below level,
// their unit groups loaded.
func (r *RPGRepository) ListUpTo(ctx context.Context, level int) ([]rpg.BonusLevel, error) {
	query := bonusLevelQuery + `
		WHERE b.level <= $1
		ORDER BY b.level, b.id, u.position, u.id
	`
	return r.queryBonusLevels(ctx, query, level)
}

// ListUnclaimedUpTo returns bonus levels with a threshold at or below
// level that none of the user's enrollments has unlocked yet.
func (r *RPGRepository) ListUnclaimedUpTo(ctx context.Context, userID int64, level int) ([]rpg.BonusLevel, error) {
	query := bonusLevelQuery + `
		WHERE b.level <= $2
		  AND NOT EXISTS (
			SELECT 1
			FROM bonus_level_unlocks ul
			JOIN students s ON s.id = ul.student_id
			WHERE ul.bonus_id = b.id AND s.user_id = $1
		  )
		ORDER BY b.level, b.id, u.position, u.id
	`
	return r.queryBonusLevels(ctx, query, userID, level)
}

// GetOrCreate inserts a bonus unlock unless one already exists for the
// (student, bonus) pair. The unique constraint turns a concurrent double
// grant into created=false on one side.
func (r *RPGRepository) GetOrCreate(ctx context.Context, unlock rpg.BonusLevelUnlock) (bool, error) {
	query := `
		INSERT INTO bonus_level_unlocks (id, bonus_id, student_id, unlocked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, bonus_id) DO NOTHING
	`

	tag, err := r.conn.Exec(ctx, query, unlock.ID, unlock.BonusID, unlock.StudentID, unlock.Timestamp)
	if err != nil {
		if IsTransient(err) {
			return false, shared.WrapError("rpg", "GetOrCreate", shared.ErrConcurrentModification, "bonus unlock conflicted", err)
		}
		return false, fmt.Errorf("failed to create bonus unlock: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

const bonusLevelQuery = `
	SELECT b.id, b.level, g.id, g.name, u.id, u.code
	FROM bonus_levels b
	JOIN unit_groups g ON g.id = b.group_id
	LEFT JOIN units u ON u.group_id = g.id
`

// queryBonusLevels runs a bonusLevelQuery variant and folds the flat
// rows into bonus levels with their unit lists.
func (r *RPGRepository) queryBonusLevels(ctx context.Context, query string, args ...any) ([]rpg.BonusLevel, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bonus levels: %w", err)
	}
	defer rows.Close()

	var bonuses []rpg.BonusLevel
	index := make(map[int64]int)
	for rows.Next() {
		var (
			bonusID   int64
			level     int
			groupID   int64
			groupName string
			unitID    *int64
			unitCode  *string
		)
		if err := rows.Scan(&bonusID, &level, &groupID, &groupName, &unitID, &unitCode); err != nil {
			return nil, fmt.Errorf("failed to scan bonus level: %w", err)
		}

		i, ok := index[bonusID]
		if !ok {
			i = len(bonuses)
			index[bonusID] = i
			bonuses = append(bonuses, rpg.BonusLevel{
				ID:    bonusID,
				Level: level,
				Group: rpg.UnitGroup{ID: groupID, Name: groupName},
			})
		}
		if unitID != nil {
			bonuses[i].Group.Units = append(bonuses[i].Group.Units, rpg.Unit{
				ID:      *unitID,
				Code:    derefString(unitCode),
				GroupID: groupID,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bonus levels: %w", err)
	}
	return bonuses, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRepository implements the achievement catalog and unlock
// ports for PostgreSQL.
type AchievementRepository struct {
	conn *Connection
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(conn *Connection) *AchievementRepository {
	return &AchievementRepository{conn: conn}
}

// Compile-time interface checks.
var (
	_ rpg.AchievementRepository       = (*AchievementRepository)(nil)
	_ rpg.AchievementUnlockRepository = (*AchievementRepository)(nil)
)

const achievementColumns = `
	id, code, name, description, diamonds, creator_user_id, always_show_image
`

// FindByCode looks up an achievement by its secret code.
func (r *AchievementRepository) FindByCode(ctx context.Context, code rpg.AchievementCode) (*rpg.Achievement, error) {
	query := `SELECT ` + achievementColumns + ` FROM achievements WHERE code = $1`

	var a rpg.Achievement
	var rawCode string
	err := r.conn.QueryRow(ctx, query, code.String()).Scan(
		&a.ID,
		&rawCode,
		&a.Name,
		&a.Description,
		&a.Diamonds,
		&a.CreatorUserID,
		&a.AlwaysShowImage,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, rpg.ErrAchievementNotFound
		}
		return nil, fmt.Errorf("failed to find achievement: %w", err)
	}
	a.Code = rpg.AchievementCode(rawCode)
	return &a, nil
}

// DiamondTotal sums the diamonds of every achievement the user unlocked.
func (r *AchievementRepository) DiamondTotal(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COALESCE(SUM(a.diamonds), 0)
		FROM achievement_unlocks ul
		JOIN achievements a ON a.id = ul.achievement_id
		WHERE ul.user_id = $1
	`

	var total int
	if err := r.conn.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum diamonds: %w", err)
	}
	return total, nil
}

// ListUnlocked returns the achievements the user has unlocked, oldest
// first.
func (r *AchievementRepository) ListUnlocked(ctx context.Context, userID int64) ([]rpg.Achievement, error) {
	query := `
		SELECT a.id, a.code, a.name, a.description, a.diamonds, a.creator_user_id, a.always_show_image
		FROM achievement_unlocks ul
		JOIN achievements a ON a.id = ul.achievement_id
		WHERE ul.user_id = $1
		ORDER BY ul.unlocked_at, a.id
	`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocked achievements: %w", err)
	}
	defer rows.Close()

	var achievements []rpg.Achievement
	for rows.Next() {
		var a rpg.Achievement
		var rawCode string
		err := rows.Scan(&a.ID, &rawCode, &a.Name, &a.Description, &a.Diamonds, &a.CreatorUserID, &a.AlwaysShowImage)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		a.Code = rpg.AchievementCode(rawCode)
		achievements = append(achievements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate achievements: %w", err)
	}
	return achievements, nil
}

// GetOrCreate inserts an achievement unlock unless the user already has
// one for the achievement.
func (r *AchievementRepository) GetOrCreate(ctx context.Context, unlock rpg.AchievementUnlock) (bool, error) {
	query := `
		INSERT INTO achievement_unlocks (user_id, achievement_id, unlocked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`

	tag, err := r.conn.Exec(ctx, query, unlock.UserID, unlock.AchievementID, unlock.Timestamp)
	if err != nil {
		return false, fmt.Errorf("failed to create achievement unlock: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PALACE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PalaceRepository implements rpg.PalaceRepository for PostgreSQL.
type PalaceRepository struct {
	conn *Connection
}

// NewPalaceRepository creates a new PalaceRepository.
func NewPalaceRepository(conn *Connection) *PalaceRepository {
	return &PalaceRepository{conn: conn}
}

var _ rpg.PalaceRepository = (*PalaceRepository)(nil)

// ListVisible returns the visible palace carvings.
func (r *PalaceRepository) ListVisible(ctx context.Context) ([]rpg.PalaceCarving, error) {
	query := `
		SELECT user_id, display_name, message, hyperlink, visible
		FROM palace_carvings
		WHERE visible
		ORDER BY display_name, user_id
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list carvings: %w", err)
	}
	defer rows.Close()

	var carvings []rpg.PalaceCarving
	for rows.Next() {
		var c rpg.PalaceCarving
		if err := rows.Scan(&c.UserID, &c.DisplayName, &c.Message, &c.Hyperlink, &c.Visible); err != nil {
			return nil, fmt.Errorf("failed to scan carving: %w", err)
		}
		carvings = append(carvings, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate carvings: %w", err)
	}
	return carvings, nil
}

// Upsert creates or replaces the user's carving.
func (r *PalaceRepository) Upsert(ctx context.Context, carving rpg.PalaceCarving) error {
	query := `
		INSERT INTO palace_carvings (user_id, display_name, message, hyperlink, visible)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			message = EXCLUDED.message,
			hyperlink = EXCLUDED.hyperlink,
			visible = EXCLUDED.visible
	`

	_, err := r.conn.Exec(ctx, query,
		carving.UserID,
		carving.DisplayName,
		carving.Message,
		carving.Hyperlink,
		carving.Visible,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert carving: %w", err)
	}
	return nil
}
