package models

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Enums ────────────────────

type VideoStatus string

const (
	StatusUploaded          VideoStatus = "uploaded"
	StatusPlayersDetected   VideoStatus = "players_detected"
	StatusBallAnalyzed      VideoStatus = "ball_analyzed"
	StatusActionsDone       VideoStatus = "actions_done"
	StatusHighlightsCreated VideoStatus = "highlights_created"
	StatusDone              VideoStatus = "done"
	StatusError             VideoStatus = "error"
)

// Terminal reports whether no further forward transition exists for s.
func (s VideoStatus) Terminal() bool {
	return s == StatusDone || s == StatusError
}

type ActionType string

const (
	// Shooting
	ActionShot2Pt   ActionType = "shot_2pt"
	ActionShot3Pt   ActionType = "shot_3pt"
	ActionFreeThrow ActionType = "free_throw"
	ActionDunk      ActionType = "dunk"
	ActionLayup     ActionType = "layup"

	// Ball handling
	ActionDribble  ActionType = "dribble"
	ActionPass     ActionType = "pass"
	ActionSteal    ActionType = "steal"
	ActionTurnover ActionType = "turnover"

	// Rebounding
	ActionReboundOffensive ActionType = "rebound_offensive"
	ActionReboundDefensive ActionType = "rebound_defensive"

	// Defense
	ActionBlock ActionType = "block"
	ActionFoul  ActionType = "foul"

	// Movement
	ActionRun  ActionType = "run"
	ActionWalk ActionType = "walk"
	ActionJump ActionType = "jump"

	// Other
	ActionAssist ActionType = "assist"
)

// IsShooting reports whether t counts as a field goal or free throw attempt.
func (t ActionType) IsShooting() bool {
	switch t {
	case ActionShot2Pt, ActionShot3Pt, ActionFreeThrow, ActionDunk, ActionLayup:
		return true
	}
	return false
}

type HighlightType string

const (
	HighlightBestPlays HighlightType = "best_plays"
	HighlightShooting  HighlightType = "shooting_highlights"
	HighlightDefensive HighlightType = "defensive_highlights"
	HighlightPlayer    HighlightType = "player_specific"
)

// ──────────────────── User ────────────────────

type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Session struct {
	Token     string    `json:"-" db:"token"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	IsAdmin   bool      `json:"is_admin" db:"is_admin"`
	ExpiresAt int64     `json:"expires_at" db:"expires_at"`
}

// ──────────────────── Video ────────────────────

// Video is the unit of pipeline processing. Status is owned exclusively by
// the pipeline state machine; every other component treats it as read-only.
type Video struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	UserID       *uuid.UUID  `json:"user_id,omitempty" db:"user_id"`
	FilePath     string      `json:"file_path" db:"file_path"`
	OriginalName string      `json:"original_name" db:"original_name"`
	Status       VideoStatus `json:"status" db:"status"`
	Duration     float64     `json:"duration" db:"duration"`
	FPS          float64     `json:"fps" db:"fps"`
	Width        int         `json:"width" db:"width"`
	Height       int         `json:"height" db:"height"`

	FailedStage  *string `json:"failed_stage,omitempty" db:"failed_stage"`
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`

	UploadedAt            time.Time  `json:"uploaded_at" db:"uploaded_at"`
	ProcessingStartedAt   *time.Time `json:"processing_started_at,omitempty" db:"processing_started_at"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at,omitempty" db:"processing_completed_at"`
	UpdatedAt             time.Time  `json:"updated_at" db:"updated_at"`
}

// ──────────────────── Player ────────────────────

// Player is one detected track in a single video, not a registered person.
type Player struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	VideoID             uuid.UUID `json:"video_id" db:"video_id"`
	TrackID             string    `json:"track_id" db:"track_id"`
	JerseyNumber        string    `json:"jersey_number" db:"jersey_number"`
	TeamColor           string    `json:"team_color" db:"team_color"`
	DetectionConfidence float64   `json:"detection_confidence" db:"detection_confidence"`
	AvgBBoxArea         float64   `json:"avg_bbox_area" db:"avg_bbox_area"`
	CentroidX           float64   `json:"centroid_x" db:"centroid_x"`
	CentroidY           float64   `json:"centroid_y" db:"centroid_y"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}

// ──────────────────── RawPrediction ────────────────────

// RawPrediction is one inference engine's output for one segment. Rows are
// ephemeral: consumed by the aggregator and deleted once aggregation commits,
// retained only when a later stage fails and a retry needs them.
type RawPrediction struct {
	ID           uuid.UUID `json:"id" db:"id"`
	VideoID      uuid.UUID `json:"video_id" db:"video_id"`
	SegmentIndex int       `json:"segment_index" db:"segment_index"`
	EngineKind   string    `json:"engine_kind" db:"engine_kind"`
	Label        string    `json:"label" db:"label"`
	Confidence   float64   `json:"confidence" db:"confidence"`
	TrackID      *string   `json:"track_id,omitempty" db:"track_id"`
	X            *float64  `json:"x,omitempty" db:"x"`
	Y            *float64  `json:"y,omitempty" db:"y"`
	Area         *float64  `json:"area,omitempty" db:"area"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ──────────────────── Action ────────────────────

// Action is a finalized, time-bounded, player-attributed event. Created only
// by the aggregator; immutable afterwards except for the superseded marker.
// Committed actions for one player never overlap in time.
type Action struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	VideoID      uuid.UUID  `json:"video_id" db:"video_id"`
	PlayerID     *uuid.UUID `json:"player_id,omitempty" db:"player_id"`
	Type         ActionType `json:"type" db:"type"`
	StartTime    float64    `json:"start_time" db:"start_time"`
	EndTime      float64    `json:"end_time" db:"end_time"`
	Confidence   float64    `json:"confidence" db:"confidence"`
	IsSuccessful *bool      `json:"is_successful,omitempty" db:"is_successful"`
	X            *float64   `json:"x,omitempty" db:"x"`
	Y            *float64   `json:"y,omitempty" db:"y"`
	ModelType    string     `json:"model_type" db:"model_type"`
	SegmentFirst int        `json:"segment_first" db:"segment_first"`
	SegmentLast  int        `json:"segment_last" db:"segment_last"`
	Superseded   bool       `json:"superseded" db:"superseded"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

func (a *Action) ActionDuration() float64 {
	return a.EndTime - a.StartTime
}

// Overlaps reports whether the half-open intervals of a and b intersect.
func (a *Action) Overlaps(b *Action) bool {
	return a.StartTime < b.EndTime && b.StartTime < a.EndTime
}

// ──────────────────── Highlight ────────────────────

// Highlight is a curated, non-overlapping, time-ordered set of actions
// rendered into one clip artifact. Immutable once the artifact exists.
type Highlight struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	VideoID       uuid.UUID     `json:"video_id" db:"video_id"`
	PlayerID      *uuid.UUID    `json:"player_id,omitempty" db:"player_id"`
	Title         string        `json:"title" db:"title"`
	Type          HighlightType `json:"type" db:"type"`
	FilePath      *string       `json:"file_path,omitempty" db:"file_path"`
	Duration      float64       `json:"duration" db:"duration"`
	MinConfidence float64       `json:"min_confidence" db:"min_confidence"`
	MaxDuration   float64       `json:"max_duration" db:"max_duration"`
	ActionIDs     []uuid.UUID   `json:"action_ids" db:"action_ids"`
	ViewCount     int           `json:"view_count" db:"view_count"`
	DownloadCount int           `json:"download_count" db:"download_count"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// ──────────────────── Stats ────────────────────

// Stats is the per-(video, player) aggregate. It is fully re-derivable from
// committed actions and always replaced wholesale, never incremented in place.
type Stats struct {
	ID       uuid.UUID `json:"id" db:"id"`
	VideoID  uuid.UUID `json:"video_id" db:"video_id"`
	PlayerID uuid.UUID `json:"player_id" db:"player_id"`

	FGA2 int `json:"fga_2pt" db:"fga_2pt"`
	FGM2 int `json:"fgm_2pt" db:"fgm_2pt"`
	FGA3 int `json:"fga_3pt" db:"fga_3pt"`
	FGM3 int `json:"fgm_3pt" db:"fgm_3pt"`
	FTA  int `json:"fta" db:"fta"`
	FTM  int `json:"ftm" db:"ftm"`

	Assists           int `json:"assists" db:"assists"`
	OffensiveRebounds int `json:"offensive_rebounds" db:"offensive_rebounds"`
	DefensiveRebounds int `json:"defensive_rebounds" db:"defensive_rebounds"`
	Rebounds          int `json:"rebounds" db:"rebounds"`
	Steals            int `json:"steals" db:"steals"`
	Blocks            int `json:"blocks" db:"blocks"`
	Turnovers         int `json:"turnovers" db:"turnovers"`
	Fouls             int `json:"fouls" db:"fouls"`

	Points        int     `json:"points" db:"points"`
	MinutesPlayed float64 `json:"minutes_played" db:"minutes_played"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ShootingPercentages returns FG/2PT/3PT/FT percentages rounded to one decimal.
func (s *Stats) ShootingPercentages() map[string]float64 {
	pct := func(made, att int) float64 {
		if att == 0 {
			return 0
		}
		return float64(int(float64(made)/float64(att)*1000+0.5)) / 10
	}
	return map[string]float64{
		"fg_pct":  pct(s.FGM2+s.FGM3, s.FGA2+s.FGA3),
		"fg2_pct": pct(s.FGM2, s.FGA2),
		"fg3_pct": pct(s.FGM3, s.FGA3),
		"ft_pct":  pct(s.FTM, s.FTA),
	}
}
