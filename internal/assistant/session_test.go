package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agis/aical/internal/contract"
	"github.com/agis/aical/internal/store"
)

type stubProvider struct {
	reply       string
	replyErr    error
	suggestions []contract.Suggestion
	scanErr     error
	onReply     func()
}

func (p *stubProvider) GenerateSuggestions(context.Context, []contract.Event, Context) ([]contract.Suggestion, error) {
	return p.suggestions, p.scanErr
}

func (p *stubProvider) Reply(context.Context, []contract.Message, Context) (string, error) {
	if p.onReply != nil {
		p.onReply()
	}
	return p.reply, p.replyErr
}

func newTestSession(p Provider) (*Session, *store.Store) {
	s := store.New()
	s.SetClock(func() time.Time { return scanNow })
	sn := NewSession(s, p)
	sn.SetLatency(0)
	sn.SetClock(func() time.Time { return scanNow })
	return sn, s
}

func TestSendAppendsBothTurns(t *testing.T) {
	sn, s := newTestSession(&stubProvider{reply: "Hello! How can I help?"})
	msg, err := sn.Send(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if msg.Role != contract.RoleAssistant || msg.Text != "Hello! How can I help?" {
		t.Fatalf("unexpected reply: %+v", msg)
	}
	transcript := s.Messages()
	if len(transcript) != 2 {
		t.Fatalf("transcript length %d", len(transcript))
	}
	if transcript[0].Role != contract.RoleUser || transcript[0].Text != "hi" {
		t.Fatalf("user turn: %+v", transcript[0])
	}
	if sn.Loading() {
		t.Fatalf("loading flag must be cleared after Send")
	}
}

func TestSendRejectsReentrantSend(t *testing.T) {
	p := &stubProvider{reply: "ok"}
	sn, s := newTestSession(p)
	var reentrant error
	p.onReply = func() {
		_, reentrant = sn.Send(context.Background(), "again")
	}
	if _, err := sn.Send(context.Background(), "first"); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if !errors.Is(reentrant, ErrBusy) {
		t.Fatalf("re-entrant send must fail with ErrBusy, got %v", reentrant)
	}
	if len(s.Messages()) != 2 {
		t.Fatalf("rejected send must not touch the transcript, got %d messages", len(s.Messages()))
	}
}

func TestSendProviderFailureApologizes(t *testing.T) {
	sn, s := newTestSession(&stubProvider{replyErr: errors.New("model unavailable")})
	msg, err := sn.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("provider failure must not surface as an error: %v", err)
	}
	if msg.Role != contract.RoleAssistant || msg.Text != apology {
		t.Fatalf("expected apology turn: %+v", msg)
	}
	if len(s.Messages()) != 2 {
		t.Fatalf("transcript length %d", len(s.Messages()))
	}
	if sn.Loading() {
		t.Fatalf("loading flag must be cleared after a failure")
	}
}

func TestSendHonorsCancellation(t *testing.T) {
	sn, _ := newTestSession(&stubProvider{reply: "ok"})
	sn.SetLatency(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sn.Send(ctx, "hi"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if sn.Loading() {
		t.Fatalf("loading flag must be cleared after cancellation")
	}
}

func TestScanDeduplicatesAgainstActive(t *testing.T) {
	sg := contract.Suggestion{
		Kind:            contract.SuggestConflict,
		Message:         "overlap",
		RelatedEventIDs: []string{"a", "b"},
	}
	sn, s := newTestSession(&stubProvider{suggestions: []contract.Suggestion{sg}})
	if added := sn.Scan(context.Background()); len(added) != 1 {
		t.Fatalf("first scan should add one suggestion, got %d", len(added))
	}
	if added := sn.Scan(context.Background()); len(added) != 0 {
		t.Fatalf("repeat scan must deduplicate, got %d", len(added))
	}
	if len(s.Suggestions()) != 1 {
		t.Fatalf("store holds %d suggestions", len(s.Suggestions()))
	}
}

func TestScanProviderFailureDegradesToNothing(t *testing.T) {
	sn, s := newTestSession(&stubProvider{scanErr: errors.New("boom")})
	if added := sn.Scan(context.Background()); added != nil {
		t.Fatalf("failed scan must add nothing, got %+v", added)
	}
	if len(s.Suggestions()) != 0 {
		t.Fatalf("store must be untouched")
	}
}

func TestSnapshotWindows(t *testing.T) {
	sn, s := newTestSession(&stubProvider{})
	for i := 0; i < 8; i++ {
		start := scanNow.Add(time.Duration(-(i + 1)) * 24 * time.Hour)
		s.Add(contract.Event{Title: "past", Start: start, End: start.Add(time.Hour)})
	}
	for i := 0; i < 12; i++ {
		start := scanNow.Add(time.Duration(i+1) * 24 * time.Hour)
		s.Add(contract.Event{Title: "future", Start: start, End: start.Add(time.Hour)})
	}
	actx := sn.snapshot()
	if len(actx.Recent) != 5 {
		t.Fatalf("recent window should cap at 5, got %d", len(actx.Recent))
	}
	if len(actx.Upcoming) != 10 {
		t.Fatalf("upcoming window should cap at 10, got %d", len(actx.Upcoming))
	}
	for _, ev := range actx.Upcoming {
		if !ev.Start.After(actx.Now) {
			t.Fatalf("upcoming event not after now: %s", ev.Start)
		}
	}
}

func TestSnapshotEventStartingNowIsNotUpcoming(t *testing.T) {
	sn, s := newTestSession(&stubProvider{})
	s.Add(contract.Event{Title: "starting", Start: scanNow, End: scanNow.Add(time.Hour)})
	actx := sn.snapshot()
	if len(actx.Upcoming) != 0 {
		t.Fatalf("event starting exactly at now must not be upcoming: %+v", actx.Upcoming)
	}
	if len(actx.Recent) != 1 {
		t.Fatalf("event starting exactly at now belongs to recent, got %d", len(actx.Recent))
	}
}
