package exam

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mind-engage/studentexam/internal/grading"
)

// LedgerView is a ledger with the owning student's profile attached.
type LedgerView struct {
	ID      string          `json:"_id,omitempty"`
	Student StudentProfile  `json:"studentId"`
	Results []AttemptRecord `json:"results"`
}

// LedgerFor returns a student's ledger. A student without attempts gets an
// empty result list rather than an error.
func (s *Service) LedgerFor(ctx context.Context, studentID string) (LedgerView, error) {
	profiles, err := s.profiles(ctx, []string{studentID})
	if err != nil {
		return LedgerView{}, err
	}
	view := LedgerView{Student: profileOrID(profiles, studentID), Results: []AttemptRecord{}}
	l, err := s.ledger.Ledger(ctx, studentID)
	switch {
	case errors.Is(err, ErrNotFound):
		return view, nil
	case err != nil:
		return LedgerView{}, err
	}
	view.ID = l.ID
	view.Results = l.Results
	return view, nil
}

// History returns one student's attempts at one exam, oldest first.
func (s *Service) History(ctx context.Context, studentID, examID string) ([]AttemptRecord, error) {
	return s.ledger.ExamHistory(ctx, studentID, examID)
}

// AllLedgers lists every ledger whose student is still in the directory.
func (s *Service) AllLedgers(ctx context.Context) ([]LedgerView, error) {
	ledgers, profiles, err := s.ledgersWithProfiles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]LedgerView, 0, len(ledgers))
	for _, l := range ledgers {
		p, ok := lookupProfile(profiles, l.StudentID)
		if !ok {
			continue
		}
		out = append(out, LedgerView{ID: l.ID, Student: p, Results: l.Results})
	}
	return out, nil
}

// Participant is a student who attempted a given exam.
type Participant struct {
	StudentProfile
	Attempts       []AttemptRecord `json:"attempts"`
	BestPercentage int             `json:"bestPercentage"`
}

// StudentsByExam lists students with at least one record for examID.
func (s *Service) StudentsByExam(ctx context.Context, examID string) ([]Participant, error) {
	ledgers, profiles, err := s.ledgersWithProfiles(ctx)
	if err != nil {
		return nil, err
	}
	out := []Participant{}
	for _, l := range ledgers {
		p, ok := lookupProfile(profiles, l.StudentID)
		if !ok {
			continue
		}
		var part Participant
		for _, r := range l.Results {
			if r.ExamID != examID {
				continue
			}
			part.Attempts = append(part.Attempts, r)
			if pct := grading.Percentage(r.CorrectAnswers, r.TotalQuestions); pct > part.BestPercentage {
				part.BestPercentage = pct
			}
		}
		if len(part.Attempts) > 0 {
			part.StudentProfile = p
			out = append(out, part)
		}
	}
	return out, nil
}

// Ranking is a student's aggregate over all attempts.
type Ranking struct {
	StudentID  string  `json:"studentId"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Score      float64 `json:"score"`
	Percentage int     `json:"percentage"`
}

// Rankings orders students by total correct over total questions,
// highest first. Students missing from the directory are skipped.
func (s *Service) Rankings(ctx context.Context) ([]Ranking, error) {
	ledgers, profiles, err := s.ledgersWithProfiles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Ranking, 0, len(ledgers))
	for _, l := range ledgers {
		p, ok := lookupProfile(profiles, l.StudentID)
		if !ok {
			continue
		}
		var correct, total int
		for _, r := range l.Results {
			correct += r.CorrectAnswers
			total += r.TotalQuestions
		}
		var score float64
		if total > 0 {
			score = float64(correct) / float64(total)
		}
		out = append(out, Ranking{
			StudentID:  l.StudentID,
			Name:       p.Name,
			Email:      p.Email,
			Score:      score,
			Percentage: grading.Percentage(correct, total),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (s *Service) TopPerformers(ctx context.Context, limit int) ([]Ranking, error) {
	if limit <= 0 {
		limit = 3
	}
	all, err := s.Rankings(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type RankView struct {
	Rank int `json:"rank"`
	Ranking
}

func (s *Service) StudentRank(ctx context.Context, studentID string) (RankView, error) {
	all, err := s.Rankings(ctx)
	if err != nil {
		return RankView{}, err
	}
	for i, r := range all {
		if r.StudentID == studentID {
			return RankView{Rank: i + 1, Ranking: r}, nil
		}
	}
	return RankView{}, fmt.Errorf("rank for %q: %w", studentID, ErrNotFound)
}

func (s *Service) ledgersWithProfiles(ctx context.Context) ([]Ledger, map[string]StudentProfile, error) {
	ledgers, err := s.ledger.AllLedgers(ctx)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, 0, len(ledgers))
	for _, l := range ledgers {
		ids = append(ids, l.StudentID)
	}
	profiles, err := s.profiles(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return ledgers, profiles, nil
}

// profiles returns nil when no directory is configured; every student is
// then treated as known.
func (s *Service) profiles(ctx context.Context, ids []string) (map[string]StudentProfile, error) {
	if s.directory == nil {
		return nil, nil
	}
	p, err := s.directory.Profiles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("student profiles: %w", err)
	}
	return p, nil
}

func lookupProfile(profiles map[string]StudentProfile, id string) (StudentProfile, bool) {
	if profiles == nil {
		return StudentProfile{ID: id}, true
	}
	p, ok := profiles[id]
	return p, ok
}

func profileOrID(profiles map[string]StudentProfile, id string) StudentProfile {
	if p, ok := lookupProfile(profiles, id); ok {
		return p
	}
	return StudentProfile{ID: id}
}
