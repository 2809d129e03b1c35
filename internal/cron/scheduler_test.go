package cron

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ojashyadav101/lucy/internal/agent"
	"github.com/ojashyadav101/lucy/internal/workspace"
)

type fakeLoopRunner struct {
	response string
	err      error
	lastIn   agent.Input
}

func (f *fakeLoopRunner) Run(ctx context.Context, requestID string, in agent.Input) (agent.Result, error) {
	f.lastIn = in
	if f.err != nil {
		return agent.Result{}, f.err
	}
	return agent.Result{Text: f.response}, nil
}

type fakePoster struct {
	textChannel, textBody string
	blocksChannel         string
	blocksBody            []byte
	postTextCalls         int
	postBlocksCalls       int
}

func (p *fakePoster) PostText(ctx context.Context, channelID, threadTS, text string) (string, error) {
	p.postTextCalls++
	p.textChannel, p.textBody = channelID, text
	return "ts", nil
}

func (p *fakePoster) PostBlocks(ctx context.Context, channelID, threadTS string, blocks []byte) (string, error) {
	p.postBlocksCalls++
	p.blocksChannel, p.blocksBody = channelID, blocks
	return "ts", nil
}

func (p *fakePoster) React(ctx context.Context, channelID, messageTS, emoji string) error { return nil }

func newTestScheduler(t *testing.T, loop LoopRunner, poster *fakePoster) (*Scheduler, *workspace.Store) {
	t.Helper()
	root := t.TempDir()
	store := workspace.New(root, "ws1")
	if err := store.EnsureStructure(); err != nil {
		t.Fatalf("ensure structure: %v", err)
	}
	s := NewScheduler(root, loop, poster, nil, nil)
	return s, store
}

func TestIsSkipResponse(t *testing.T) {
	cases := map[string]bool{"SKIP": true, "skip": true, "  skip  ": true, "": true, "   ": true, "hello": false}
	for in, want := range cases {
		if got := isSkipResponse(in); got != want {
			t.Errorf("isSkipResponse(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBuildInstructionIncludesLearningsAndSkills(t *testing.T) {
	s, store := newTestScheduler(t, nil, nil)
	if err := store.Write(filepath.Join("crons", "digest", "LEARNINGS.md"), "avoid pinging on weekends"); err != nil {
		t.Fatalf("write learnings: %v", err)
	}
	if err := store.Write(filepath.Join("company", "SKILL.md"), "---\nname: company\n---\nWe sell widgets."); err != nil {
		t.Fatalf("write company skill: %v", err)
	}

	e := &entry{def: Definition{Slug: "digest", Title: "Daily digest", Description: "summarize activity"}, store: store}
	instruction, err := s.buildInstruction(e)
	if err != nil {
		t.Fatalf("build instruction: %v", err)
	}
	for _, want := range []string{"Daily digest", "summarize activity", "avoid pinging on weekends", "We sell widgets."} {
		if !strings.Contains(instruction, want) {
			t.Errorf("expected instruction to contain %q, got %q", want, instruction)
		}
	}
}

func TestDeliverDetectsBlocksField(t *testing.T) {
	poster := &fakePoster{}
	s, store := newTestScheduler(t, nil, poster)
	e := &entry{def: Definition{Slug: "digest", DeliveryMode: DeliveryChannel, DeliveryChannel: "C123"}, store: store}

	blocksResponse, _ := json.Marshal(map[string]any{"blocks": []any{map[string]any{"type": "section"}}})
	if err := s.deliver(context.Background(), e, string(blocksResponse)); err != nil {
		t.Fatalf("deliver blocks: %v", err)
	}
	if poster.postBlocksCalls != 1 || poster.postTextCalls != 0 {
		t.Fatalf("expected PostBlocks to be used for a blocks-field response, got text=%d blocks=%d", poster.postTextCalls, poster.postBlocksCalls)
	}

	if err := s.deliver(context.Background(), e, "plain text reply"); err != nil {
		t.Fatalf("deliver text: %v", err)
	}
	if poster.postTextCalls != 1 {
		t.Fatalf("expected PostText to be used for plain text, got %d calls", poster.postTextCalls)
	}
}

func TestDeliverSkipsLogOnlyMode(t *testing.T) {
	poster := &fakePoster{}
	s, store := newTestScheduler(t, nil, poster)
	e := &entry{def: Definition{Slug: "digest", DeliveryMode: DeliveryLogOnly, DeliveryChannel: "C123"}, store: store}

	if err := s.deliver(context.Background(), e, "hello"); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if poster.postTextCalls != 0 {
		t.Fatalf("expected no post for log_only delivery mode")
	}
}

func TestMaybeSelfDeleteRemovesAtMaxRuns(t *testing.T) {
	s, store := newTestScheduler(t, nil, nil)
	logPath := filepath.Join("crons", "digest", "execution.log")
	at := time.Now()
	if err := store.Write(logPath, FormatEntry(at, time.Second, StatusDelivered)+FormatEntry(at, time.Second, StatusDelivered)); err != nil {
		t.Fatalf("write log: %v", err)
	}
	if err := store.Write(filepath.Join("crons", "digest", "task.json"), `{"cron_expression":"0 9 * * *"}`); err != nil {
		t.Fatalf("write task.json: %v", err)
	}

	e := &entry{def: Definition{Slug: "digest", MaxRuns: 2}, store: store}
	s.entries["ws1/digest"] = e
	s.maybeSelfDelete(e)

	if _, ok, _ := store.Read(filepath.Join("crons", "digest", "task.json")); ok {
		t.Fatal("expected cron directory to be removed after reaching max_runs")
	}
	s.mu.Lock()
	_, stillTracked := s.entries["ws1/digest"]
	s.mu.Unlock()
	if stillTracked {
		t.Fatal("expected entry to be dropped from the scheduler after self-delete")
	}
}

func TestMaybeSelfDeleteLeavesBelowMaxRuns(t *testing.T) {
	s, store := newTestScheduler(t, nil, nil)
	logPath := filepath.Join("crons", "digest", "execution.log")
	if err := store.Write(logPath, FormatEntry(time.Now(), time.Second, StatusDelivered)); err != nil {
		t.Fatalf("write log: %v", err)
	}
	if err := store.Write(filepath.Join("crons", "digest", "task.json"), `{"cron_expression":"0 9 * * *"}`); err != nil {
		t.Fatalf("write task.json: %v", err)
	}

	e := &entry{def: Definition{Slug: "digest", MaxRuns: 5}, store: store}
	s.maybeSelfDelete(e)

	if _, ok, _ := store.Read(filepath.Join("crons", "digest", "task.json")); !ok {
		t.Fatal("expected cron directory to survive below max_runs")
	}
}
