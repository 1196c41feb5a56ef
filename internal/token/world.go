package token

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MantisClone/df-py/internal/domain"
	"github.com/MantisClone/df-py/internal/event"
)

// All-or-nothing execution. Each mutating entry point runs inside
// run(): the world (own ledger, roles, bindings, publish fee, event
// sequence, and every registered stateful collaborator) is snapshotted
// on entry and restored wholesale on failure. Audit events buffered
// during the call are flushed only on commit, so the log never shows
// an aborted call.

type worldSnap struct {
	ledger   any
	perms    any
	bindings any
	extra    []any
	fee      domain.PublishMarketFee
	seq      uint64
}

func (t *Token) snapshotWorld() worldSnap {
	s := worldSnap{
		ledger:   t.ledger.Snapshot(),
		perms:    t.perms.Snapshot(),
		bindings: t.bindings.Snapshot(),
		fee:      copyFee(t.publishFee),
		seq:      t.seq,
	}
	for _, st := range t.stateful {
		s.extra = append(s.extra, st.Snapshot())
	}
	return s
}

func (t *Token) restoreWorld(s worldSnap) {
	t.ledger.Restore(s.ledger)
	t.perms.Restore(s.perms)
	t.bindings.Restore(s.bindings)
	t.publishFee = copyFee(s.fee)
	t.seq = s.seq
	for i, st := range t.stateful {
		if i < len(s.extra) {
			st.Restore(s.extra[i])
		}
	}
}

// run executes fn with rollback-on-error semantics. Caller must hold
// t.mu.
func (t *Token) run(op string, fn func(callID string) error) error {
	callID := uuid.NewString()
	snap := t.snapshotWorld()
	t.pending = t.pending[:0]

	if err := fn(callID); err != nil {
		t.restoreWorld(snap)
		t.pending = t.pending[:0]
		slog.Warn("CALL_ABORTED",
			slog.String("op", op),
			slog.String("call_id", callID),
			slog.Any("error", err))
		return err
	}

	t.flush(op)
	return nil
}

// emit buffers an audit event for the current call. The sequence
// number advances immediately; it is part of the world snapshot and
// rewinds with everything else on abort.
func (t *Token) emit(callID string, build func(base event.BaseEvent) event.Event) {
	t.seq++
	base := event.BaseEvent{
		Seq:    t.seq,
		Ts:     time.Now().UnixMicro(),
		CallID: callID,
	}
	t.pending = append(t.pending, build(base))
}

func (t *Token) flush(op string) {
	for _, ev := range t.pending {
		slog.Info("audit event",
			slog.String("op", op),
			slog.Uint64("seq", ev.GetSeq()),
			slog.Int("type", int(ev.GetType())),
			slog.String("call_id", ev.GetCallID()))
		if t.store != nil {
			if err := t.store.SaveEvent(context.Background(), ev); err != nil {
				// The call's state effects are already committed;
				// surface loudly rather than unwind them.
				slog.Error("AUDIT_PERSIST_FAILED",
					slog.Uint64("seq", ev.GetSeq()),
					slog.Any("error", err))
			}
		}
	}
	t.pending = t.pending[:0]
}
