package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"runClubAPI/internal/apperr"
	"runClubAPI/internal/ruleset"
	"runClubAPI/internal/strava"
	"runClubAPI/internal/types/challenge"
	"runClubAPI/internal/types/leaderboard"
	"runClubAPI/internal/types/user"
	"runClubAPI/middleware"
)

type ChallengeService struct {
	db     *pgxpool.Pool
	users  *UserService
	strava *strava.Client
}

func NewChallengeService(db *pgxpool.Pool, users *UserService, stravaClient *strava.Client) *ChallengeService {
	return &ChallengeService{db: db, users: users, strava: stravaClient}
}

func (s *ChallengeService) CreateChallenge(ctx context.Context, req *challenge.CreateRequest) (*challenge.Challenge, error) {
	startDate, err := time.Parse(ruleset.DateLayout, req.StartDate)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "start_date must be YYYY-MM-DD")
	}
	endDate, err := time.Parse(ruleset.DateLayout, req.EndDate)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "end_date must be YYYY-MM-DD")
	}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if startDate.Before(today) {
		return nil, apperr.New(apperr.KindValidation, "start date must be today or later")
	}
	if !endDate.After(startDate) {
		return nil, apperr.New(apperr.KindValidation, "end date must be after start date")
	}
	if err := ruleset.Validate(req.RulesetType, req.RulesetConfig); err != nil {
		return nil, err
	}
	creatorID, err := uuid.Parse(req.CreatorUserID)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "creator_user_id must be a UUID")
	}

	ch := &challenge.Challenge{
		ID:            uuid.New(),
		CreatorUserID: creatorID,
		Title:         req.Title,
		Description:   req.Description,
		RulesetType:   req.RulesetType,
		RulesetConfig: req.RulesetConfig,
		StartDate:     startDate,
		EndDate:       endDate,
		Sponsor:       req.Sponsor,
		CreatedAt:     now,
	}

	configJSON, err := json.Marshal(ch.RulesetConfig)
	if err != nil {
		return nil, fmt.Errorf("encoding ruleset config: %w", err)
	}
	var sponsorJSON []byte
	if ch.Sponsor != nil {
		sponsorJSON, err = json.Marshal(ch.Sponsor)
		if err != nil {
			return nil, fmt.Errorf("encoding sponsor: %w", err)
		}
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO challenges (id, creator_user_id, title, description, ruleset_type, ruleset_config, start_date, end_date, sponsor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ch.ID, ch.CreatorUserID, ch.Title, ch.Description, string(ch.RulesetType), configJSON, ch.StartDate, ch.EndDate, sponsorJSON, ch.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating challenge: %w", err)
	}
	return ch, nil
}

const challengeColumns = `id, creator_user_id, title, description, ruleset_type, ruleset_config, start_date, end_date, sponsor, created_at`

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	ch := &challenge.Challenge{}
	var rulesetType string
	var configJSON, sponsorJSON []byte
	err := row.Scan(
		&ch.ID,
		&ch.CreatorUserID,
		&ch.Title,
		&ch.Description,
		&rulesetType,
		&configJSON,
		&ch.StartDate,
		&ch.EndDate,
		&sponsorJSON,
		&ch.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	ch.RulesetType = challenge.RulesetType(rulesetType)
	if err := json.Unmarshal(configJSON, &ch.RulesetConfig); err != nil {
		return nil, fmt.Errorf("decoding ruleset config: %w", err)
	}
	if len(sponsorJSON) > 0 {
		ch.Sponsor = &challenge.Sponsor{}
		if err := json.Unmarshal(sponsorJSON, ch.Sponsor); err != nil {
			return nil, fmt.Errorf("decoding sponsor: %w", err)
		}
	}
	return ch, nil
}

func (s *ChallengeService) GetChallenge(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	ch, err := scanChallenge(s.db.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "challenge not found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting challenge: %w", err)
	}
	return ch, nil
}

// ListChallenges filters by status: "active", "upcoming", "completed" or
// "" for all, newest first, with participant counts attached.
func (s *ChallengeService) ListChallenges(ctx context.Context, status string) ([]challenge.WithParticipantCount, error) {
	query := `
		SELECT ` + challengeColumns + `, (
			SELECT COUNT(*) FROM challenge_participants p WHERE p.challenge_id = c.id
		)
		FROM challenges c`
	switch status {
	case "active":
		query += ` WHERE c.start_date <= CURRENT_DATE AND c.end_date >= CURRENT_DATE`
	case "upcoming":
		query += ` WHERE c.start_date > CURRENT_DATE`
	case "completed":
		query += ` WHERE c.end_date < CURRENT_DATE`
	case "":
	default:
		return nil, apperr.Newf(apperr.KindValidation, "unknown status filter %q", status)
	}
	query += ` ORDER BY c.created_at DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing challenges: %w", err)
	}
	defer rows.Close()

	list := []challenge.WithParticipantCount{}
	for rows.Next() {
		var item challenge.WithParticipantCount
		var rulesetType string
		var configJSON, sponsorJSON []byte
		err := rows.Scan(
			&item.ID, &item.CreatorUserID, &item.Title, &item.Description,
			&rulesetType, &configJSON, &item.StartDate, &item.EndDate,
			&sponsorJSON, &item.CreatedAt, &item.ParticipantCount,
		)
		if err != nil {
			return nil, err
		}
		item.RulesetType = challenge.RulesetType(rulesetType)
		if err := json.Unmarshal(configJSON, &item.RulesetConfig); err != nil {
			return nil, fmt.Errorf("decoding ruleset config: %w", err)
		}
		if len(sponsorJSON) > 0 {
			item.Sponsor = &challenge.Sponsor{}
			if err := json.Unmarshal(sponsorJSON, item.Sponsor); err != nil {
				return nil, fmt.Errorf("decoding sponsor: %w", err)
			}
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

// ListActiveChallenges returns challenges whose window covers today.
func (s *ChallengeService) ListActiveChallenges(ctx context.Context) ([]*challenge.Challenge, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+challengeColumns+` FROM challenges
		WHERE start_date <= CURRENT_DATE AND end_date >= CURRENT_DATE
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing active challenges: %w", err)
	}
	defer rows.Close()

	var list []*challenge.Challenge
	for rows.Next() {
		ch, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, ch)
	}
	return list, rows.Err()
}

// Join is idempotent: re-joining returns the existing participant record.
func (s *ChallengeService) Join(ctx context.Context, challengeID, userID uuid.UUID) (*challenge.Participant, error) {
	if _, err := s.GetChallenge(ctx, challengeID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	emptyProgress, err := json.Marshal(challenge.Progress{AttemptsLog: []challenge.AttemptLog{}})
	if err != nil {
		return nil, fmt.Errorf("encoding progress: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO challenge_participants (challenge_id, user_id, joined_at, progress, completed)
		VALUES ($1, $2, now(), $3, FALSE)
		ON CONFLICT (challenge_id, user_id) DO NOTHING`,
		challengeID, userID, emptyProgress,
	)
	if err != nil {
		return nil, fmt.Errorf("joining challenge: %w", err)
	}
	return s.GetParticipant(ctx, challengeID, userID)
}

const participantColumns = `challenge_id, user_id, joined_at, progress, completed`

func scanParticipant(row pgx.Row) (*challenge.Participant, error) {
	p := &challenge.Participant{}
	var progressJSON []byte
	if err := row.Scan(&p.ChallengeID, &p.UserID, &p.JoinedAt, &progressJSON, &p.Completed); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(progressJSON, &p.Progress); err != nil {
		return nil, fmt.Errorf("decoding progress: %w", err)
	}
	return p, nil
}

func (s *ChallengeService) GetParticipant(ctx context.Context, challengeID, userID uuid.UUID) (*challenge.Participant, error) {
	p, err := scanParticipant(s.db.QueryRow(ctx, `
		SELECT `+participantColumns+` FROM challenge_participants
		WHERE challenge_id = $1 AND user_id = $2`, challengeID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "participant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting participant: %w", err)
	}
	return p, nil
}

func (s *ChallengeService) ListParticipants(ctx context.Context, challengeID uuid.UUID) ([]*challenge.Participant, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+participantColumns+` FROM challenge_participants
		WHERE challenge_id = $1 ORDER BY joined_at`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("listing participants: %w", err)
	}
	defer rows.Close()

	var list []*challenge.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// SyncParticipant refreshes one participant's progress against their full
// activity history. Token or fetch failures abort before any progress
// write, so a failed sync never leaves a half-updated record.
func (s *ChallengeService) SyncParticipant(ctx context.Context, challengeID, userID uuid.UUID) (*challenge.Progress, bool, error) {
	ch, err := s.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.GetParticipant(ctx, challengeID, userID); err != nil {
		return nil, false, err
	}
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	accessToken, err := s.users.EnsureValidToken(ctx, u)
	if err != nil {
		middleware.RecordSync("challenge", "error")
		return nil, false, err
	}

	activities, err := s.strava.FetchActivities(ctx, accessToken, nil)
	if err != nil {
		middleware.RecordSync("challenge", "error")
		return nil, false, err
	}
	middleware.RecordActivitiesFetched(len(activities))

	progress, completed, err := evaluateParticipant(ch, activities, time.Now().UTC())
	if err != nil {
		return nil, false, err
	}

	progressJSON, err := json.Marshal(progress)
	if err != nil {
		return nil, false, fmt.Errorf("encoding progress: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		UPDATE challenge_participants SET progress = $3, completed = $4
		WHERE challenge_id = $1 AND user_id = $2`,
		challengeID, userID, progressJSON, completed,
	)
	if err != nil {
		return nil, false, fmt.Errorf("persisting progress: %w", err)
	}

	middleware.RecordSync("challenge", "ok")
	return progress, completed, nil
}

// evaluateParticipant is the pure core of the challenge engine: window the
// activities, roll them up per date, and let the ruleset decide daily
// status and completion.
func evaluateParticipant(ch *challenge.Challenge, activities []strava.Activity, now time.Time) (*challenge.Progress, bool, error) {
	rs, err := ruleset.Parse(ch.RulesetType, ch.RulesetConfig)
	if err != nil {
		return nil, false, err
	}

	attempts := attemptsByDate(activities, ch.StartDate, ch.EndDate)

	attemptsLog := make([]challenge.AttemptLog, 0, len(attempts))
	var kmCompleted float64
	var minutesCompleted int
	for date, d := range attempts {
		attemptsLog = append(attemptsLog, challenge.AttemptLog{Date: date, Km: d.Km, Minutes: d.Minutes})
		kmCompleted += d.Km
		minutesCompleted += d.Minutes
	}
	sort.Slice(attemptsLog, func(i, j int) bool { return attemptsLog[i].Date < attemptsLog[j].Date })

	outcome := rs.Evaluate(attempts, ch.StartDate, ch.EndDate, now)

	// Back-annotate required-day results onto matching attempt entries.
	for i := range attemptsLog {
		if met, ok := outcome.DailyStatus[attemptsLog[i].Date]; ok {
			v := met
			attemptsLog[i].Completed = &v
		}
	}

	progress := &challenge.Progress{
		KmCompleted:      kmCompleted,
		MinutesCompleted: minutesCompleted,
		AttemptsLog:      attemptsLog,
		DailyStatus:      outcome.DailyStatus,
	}
	return progress, outcome.Completed, nil
}

// attemptsByDate restricts activities to the challenge window (inclusive,
// by athlete-local calendar date) and sums km and floored minutes per date.
func attemptsByDate(activities []strava.Activity, start, end time.Time) map[string]ruleset.DayTotals {
	startDay := start.Format(ruleset.DateLayout)
	endDay := end.Format(ruleset.DateLayout)

	attempts := make(map[string]ruleset.DayTotals)
	for _, a := range activities {
		localStart, err := a.LocalStart()
		if err != nil {
			continue
		}
		date := localStart.Format(ruleset.DateLayout)
		if date < startDay || date > endDay {
			continue
		}
		d := attempts[date]
		d.Km += a.Distance / 1000
		d.Minutes += a.MovingTime / 60
		attempts[date] = d
	}
	return attempts
}

// SyncAllParticipants syncs every participant of one challenge. A single
// participant's failure is recorded and does not abort the batch.
func (s *ChallengeService) SyncAllParticipants(ctx context.Context, challengeID uuid.UUID) (*challenge.SyncReport, error) {
	if _, err := s.GetChallenge(ctx, challengeID); err != nil {
		return nil, err
	}
	participants, err := s.ListParticipants(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	report := &challenge.SyncReport{Results: []challenge.SyncResult{}}
	for _, p := range participants {
		_, completed, err := s.SyncParticipant(ctx, challengeID, p.UserID)
		if err != nil {
			log.Printf("SyncAllParticipants: challenge %s user %s: %v", challengeID, p.UserID, err)
			report.Failed++
			report.Results = append(report.Results, challenge.SyncResult{UserID: p.UserID, Success: false, Error: err.Error()})
			continue
		}
		report.Synced++
		report.Results = append(report.Results, challenge.SyncResult{UserID: p.UserID, Success: true, Completed: completed})
	}
	return report, nil
}

// SyncAllActiveChallenges is the scheduler entry point. Idempotent and
// re-entrant; failures are isolated per participant.
func (s *ChallengeService) SyncAllActiveChallenges(ctx context.Context) error {
	active, err := s.ListActiveChallenges(ctx)
	if err != nil {
		return err
	}
	for _, ch := range active {
		if _, err := s.SyncAllParticipants(ctx, ch.ID); err != nil {
			log.Printf("SyncAllActiveChallenges: challenge %s: %v", ch.ID, err)
		}
	}
	return nil
}

// ChallengeLeaderboard ranks participants: completed first, then by the
// ruleset's progress metric descending. Participants without a resolvable
// user profile are dropped.
func (s *ChallengeService) ChallengeLeaderboard(ctx context.Context, challengeID uuid.UUID) ([]leaderboard.ChallengeEntry, error) {
	ch, err := s.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	participants, err := s.ListParticipants(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	usersByID, err := s.users.ListUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	return rankParticipants(ch, participants, usersByID)
}

func rankParticipants(ch *challenge.Challenge, participants []*challenge.Participant, usersByID map[uuid.UUID]*user.User) ([]leaderboard.ChallengeEntry, error) {
	rs, err := ruleset.Parse(ch.RulesetType, ch.RulesetConfig)
	if err != nil {
		return nil, err
	}

	entries := []leaderboard.ChallengeEntry{}
	for _, p := range participants {
		u, ok := usersByID[p.UserID]
		if !ok {
			log.Printf("ChallengeLeaderboard: dropping participant %s without user record", p.UserID)
			continue
		}
		entries = append(entries, leaderboard.ChallengeEntry{
			UserID:         p.UserID,
			Slug:           u.Slug,
			Name:           u.Name,
			StartupName:    u.StartupName,
			ProfileImage:   u.ProfileImage,
			ProgressMetric: rs.ProgressMetric(p.Progress, ch.StartDate, ch.EndDate),
			Completed:      p.Completed,
			DailyStatus:    p.Progress.DailyStatus,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Completed != entries[j].Completed {
			return entries[i].Completed
		}
		return entries[i].ProgressMetric > entries[j].ProgressMetric
	})
	return entries, nil
}
