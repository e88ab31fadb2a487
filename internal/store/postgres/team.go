package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"flagrange/internal/store"

	"github.com/google/uuid"
)

const teamColumns = `id, game_id, team_id, token, container_ref, container_addr,
	ssh_port, is_active, created_at`

// AddTeam inserts a team membership row.
func (s *Store) AddTeam(ctx context.Context, team *store.GameTeam) error {
	query := `
		INSERT INTO game_teams (id, game_id, team_id, token, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		team.ID,
		team.GameID,
		team.TeamID,
		team.Token,
		team.IsActive,
		team.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("team %s in game %s: %w", team.TeamID, team.GameID, store.ErrDuplicate)
	}
	return err
}

func (s *Store) ListTeams(ctx context.Context, gameID uuid.UUID, activeOnly bool) ([]*store.GameTeam, error) {
	query := fmt.Sprintf("SELECT %s FROM game_teams WHERE game_id = $1", teamColumns)
	if activeOnly {
		query += " AND is_active"
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("list teams for game %s: %w", gameID, err)
	}
	defer rows.Close()

	var teams []*store.GameTeam
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

func (s *Store) GetTeamByToken(ctx context.Context, token string) (*store.GameTeam, error) {
	query := fmt.Sprintf("SELECT %s FROM game_teams WHERE token = $1 AND is_active", teamColumns)
	team, err := scanTeam(s.db.QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("team token: %w", store.ErrNotFound)
	}
	return team, err
}

func (s *Store) SetTeamDeployment(ctx context.Context, id uuid.UUID, containerRef, containerAddr string, sshPort int) error {
	query := `
		UPDATE game_teams
		SET container_ref = $2, container_addr = $3, ssh_port = $4
		WHERE id = $1
	`
	_, err := s.db.ExecContext(ctx, query, id, containerRef, containerAddr, sshPort)
	if err != nil {
		return fmt.Errorf("set deployment for team %s: %w", id, err)
	}
	return nil
}

func (s *Store) ClearTeamDeployment(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE game_teams
		SET container_ref = NULL, container_addr = NULL, ssh_port = NULL
		WHERE id = $1
	`
	_, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("clear deployment for team %s: %w", id, err)
	}
	return nil
}

// ListAllocatedPorts returns the SSH ports currently held by other games
// that are running, deploying, or paused.
func (s *Store) ListAllocatedPorts(ctx context.Context, excludeGame uuid.UUID) ([]store.PortAssignment, error) {
	query := `
		SELECT gt.game_id, gt.team_id, gt.ssh_port
		FROM game_teams gt
		JOIN games g ON g.id = gt.game_id
		WHERE g.status IN ('running', 'deploying', 'paused')
		  AND gt.ssh_port IS NOT NULL
		  AND g.id != $1
	`
	rows, err := s.db.QueryContext(ctx, query, excludeGame)
	if err != nil {
		return nil, fmt.Errorf("list allocated ports: %w", err)
	}
	defer rows.Close()

	var ports []store.PortAssignment
	for rows.Next() {
		var p store.PortAssignment
		if err := rows.Scan(&p.GameID, &p.TeamID, &p.Port); err != nil {
			return nil, fmt.Errorf("scan port assignment: %w", err)
		}
		ports = append(ports, p)
	}
	return ports, rows.Err()
}

func scanTeam(row rowScanner) (*store.GameTeam, error) {
	var team store.GameTeam
	err := row.Scan(
		&team.ID,
		&team.GameID,
		&team.TeamID,
		&team.Token,
		&team.ContainerRef,
		&team.ContainerAddr,
		&team.SSHPort,
		&team.IsActive,
		&team.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &team, nil
}
