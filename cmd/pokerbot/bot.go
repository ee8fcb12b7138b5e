package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/channel"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/poker"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/prefs"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/shared"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/tracker"
)

type actionKind int

const (
	actNone actionKind = iota
	actVote
	actFlip
	actQuickDraw
	actReveal
	actReset
)

func (k actionKind) String() string {
	switch k {
	case actVote:
		return "vote"
	case actFlip:
		return "flip"
	case actQuickDraw:
		return "quick_draw"
	case actReveal:
		return "reveal"
	case actReset:
		return "reset"
	default:
		return "none"
	}
}

type action struct {
	kind actionKind
	card string
	slot int
}

// policy decides what the bot does next from a snapshot of the room.
type policy struct {
	vote       string
	autoVote   bool
	autoReveal bool
	resetAfter time.Duration
	rnd        *rand.Rand
}

func (p policy) pick(cards []string) string {
	if p.vote != "" {
		for _, c := range cards {
			if c == p.vote {
				return c
			}
		}
	}
	return cards[p.rnd.IntN(len(cards))]
}

func selfView(s poker.RoomState) (poker.ParticipantView, bool) {
	for _, pv := range s.Participants {
		if pv.IsSelf {
			return pv, true
		}
	}
	return poker.ParticipantView{}, false
}

func allVoted(s poker.RoomState) bool {
	if len(s.Participants) == 0 {
		return false
	}
	for _, pv := range s.Participants {
		if !pv.HasVoted {
			return false
		}
	}
	return true
}

// next returns the single action to take. revealedFor is how long the
// current round has been revealed.
func (p policy) next(s poker.RoomState, revealedFor time.Duration) action {
	self, ok := selfView(s)
	isCreator := s.CreatorID != "" && s.CreatorID == s.SelfID

	switch s.GameState {
	case protocol.GameQuickDraw:
		if !ok || self.Blocked || !s.QuickDraw.Active || len(s.QuickDraw.Cards) == 0 {
			return action{}
		}
		if _, picked := s.QuickDraw.Picks[s.SelfID]; picked {
			return action{}
		}
		return action{kind: actQuickDraw, card: p.pick(s.QuickDraw.Cards)}

	case protocol.GameVoting:
		if p.autoVote && ok && !self.Blocked && !s.HasVoted {
			if s.Shuffle != nil {
				if s.Shuffle.Flipped < 0 {
					return action{kind: actFlip, slot: p.rnd.IntN(len(s.Shuffle.CardOrder))}
				}
				return action{}
			}
			return action{kind: actVote, card: p.pick(poker.Deck)}
		}
		if p.autoReveal && isCreator && allVoted(s) {
			return action{kind: actReveal}
		}

	case protocol.GameRevealed:
		if isCreator && p.resetAfter > 0 && revealedFor >= p.resetAfter {
			return action{kind: actReset}
		}
	}
	return action{}
}

type bot struct {
	client *poker.Client
	policy policy
	logger *slog.Logger

	revealedAt time.Time
	reported   bool
}

func (b *bot) step(ctx context.Context, now time.Time) {
	s := b.client.State()

	var revealedFor time.Duration
	if s.GameState == protocol.GameRevealed {
		if b.revealedAt.IsZero() {
			b.revealedAt = now
		}
		revealedFor = now.Sub(b.revealedAt)
		if !b.reported {
			b.report(s)
			b.reported = true
		}
	} else {
		b.revealedAt = time.Time{}
		b.reported = false
	}

	act := b.policy.next(s, revealedFor)
	var err error
	switch act.kind {
	case actNone:
		return
	case actVote:
		err = b.client.CastVote(ctx, act.card)
	case actFlip:
		act.card, err = b.client.FlipCard(ctx, act.slot)
	case actQuickDraw:
		err = b.client.QuickDrawPick(ctx, act.card)
	case actReveal:
		err = b.client.Reveal(ctx)
	case actReset:
		err = b.client.ResetVoting(ctx)
	}
	if err != nil {
		b.logger.Warn("action failed", "action", act.kind, "card", act.card, "error", err)
		return
	}
	b.logger.Debug("action", "action", act.kind, "card", act.card)
}

func (b *bot) report(s poker.RoomState) {
	votes := make([]string, 0, len(s.Participants))
	for _, pv := range s.Participants {
		votes = append(votes, fmt.Sprintf("%s=%s", pv.Name, s.Results[pv.ID]))
	}
	attrs := []any{"votes", strings.Join(votes, " ")}
	if s.Stats != nil {
		attrs = append(attrs, "average", s.Stats.Average, "consensus", s.Stats.Consensus)
	}
	b.logger.Info("cards revealed", attrs...)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openProfile(ctx context.Context, cfg *Config) (*prefs.Store, *prefs.Preferences, error) {
	db, err := gorm.Open(sqlite.Open(cfg.profile), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open profile: %w", err)
	}
	store := prefs.NewStore(db)
	if err := store.Migrate(); err != nil {
		return nil, nil, fmt.Errorf("migrate profile: %w", err)
	}

	p, err := store.Local(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load profile: %w", err)
	}
	if cfg.name != "" {
		p.SetDisplayName(cfg.name)
	}
	creds := p.TrackerCredentials()
	if cfg.jiraDomain != "" {
		creds.Domain = cfg.jiraDomain
	}
	if cfg.jiraEmail != "" {
		creds.Email = cfg.jiraEmail
	}
	if cfg.jiraToken != "" {
		creds.Token = cfg.jiraToken
	}
	p.SetTrackerCredentials(creds)
	return store, p, nil
}

func Run(ctx context.Context, cfg *Config) error {
	logger := newLogger(cfg.verbose)

	store, profile, err := openProfile(ctx, cfg)
	if err != nil {
		return err
	}

	roomID := shared.NewRoomID()
	if cfg.room != "" {
		if roomID, err = shared.NormalizeRoomID(cfg.room); err != nil {
			return err
		}
	}
	profile.RememberRoom(roomID)
	if err := store.Save(ctx, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	var issues poker.IssueSearcher
	if profile.HasTrackerCredentials() {
		creds := profile.TrackerCredentials()
		client := tracker.NewClient(tracker.Config{AllowedDomains: []string{creds.Domain}})
		issues = tracker.NewSearcher(client, creds)
	}

	ch := channel.NewWSChannel(cfg.server, logger)
	defer ch.Close()

	client, err := poker.NewClient(ch, poker.Config{
		ParticipantID: profile.ProfileID,
		DisplayName:   profile.DisplayName,
		Issues:        issues,
		OnNotify: func(n poker.Notification) {
			logger.Info("notification", "severity", n.Severity, "message", n.Message)
		},
	}, logger)
	if err != nil {
		return err
	}

	if err := client.Join(ctx, roomID); err != nil {
		return fmt.Errorf("join %s: %w", roomID, err)
	}
	logger.Info("joined room", "room_id", roomID, "participant_id", profile.ProfileID, "name", profile.DisplayName)

	if cfg.importIssues > 0 {
		importIssues(ctx, client, cfg.jql, cfg.importIssues, logger)
	}

	b := &bot{
		client: client,
		policy: policy{
			vote:       cfg.vote,
			autoVote:   cfg.autoVote,
			autoReveal: cfg.autoReveal,
			resetAfter: cfg.resetAfter,
			rnd:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		},
		logger: logger,
	}

	ticker := time.NewTicker(cfg.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			leaveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Leave(leaveCtx); err != nil {
				logger.Warn("leave failed", "error", err)
			}
			logger.Info("left room", "room_id", roomID)
			return nil
		case now := <-ticker.C:
			b.step(ctx, now)
		}
	}
}

func importIssues(ctx context.Context, client *poker.Client, jql string, limit int, logger *slog.Logger) {
	found, err := client.FetchIssues(ctx, jql)
	if err != nil {
		logger.Warn("issue import failed", "error", err)
		return
	}
	if len(found) > limit {
		found = found[:limit]
	}
	for _, t := range found {
		if _, err := client.AddTicket(ctx, t); err != nil {
			logger.Warn("add ticket failed", "key", t.Key, "error", err)
		}
	}
	logger.Info("imported issues", "count", len(found))
}
