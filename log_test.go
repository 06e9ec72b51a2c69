package nokk_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	nokk "github.com/nextlw/nokk-agents"
)

func TestAttachLogListener(t *testing.T) {
	slogger, th := newTestLogger()
	bus := nokk.NewBus()
	gt.NoError(t, nokk.AttachLogListener(bus, slogger))

	rc := nokk.NewRunContext()
	bus.EmitRunStart(context.Background(), "Triagem", "hello", rc)

	entries := th.getEntries()
	gt.Equal(t, len(entries), 1)
	gt.Equal(t, entries[0].Message, "lifecycle event")
	gt.Equal(t, entries[0].Attrs["kind"], any("run_start"))
	gt.Equal(t, entries[0].Attrs["run_id"], any(rc.ID()))
	gt.Equal(t, entries[0].Attrs["payload"], any([]any{"Triagem", "hello"}))
}

func TestAttachLogListenerFiltersKinds(t *testing.T) {
	slogger, th := newTestLogger()
	bus := nokk.NewBus()
	gt.NoError(t, nokk.AttachLogListener(bus, slogger, nokk.KindToolStart, nokk.KindToolComplete))

	rc := nokk.NewRunContext()
	bus.EmitRunStart(context.Background(), "Triagem", "hello", rc)
	bus.EmitToolStart(context.Background(), "buscar_produto", map[string]any{"q": "x"}, rc)

	entries := th.getEntries()
	gt.Equal(t, len(entries), 1)
	gt.Equal(t, entries[0].Attrs["kind"], any("tool_start"))
}

func TestAttachLogListenerOnFrozenBus(t *testing.T) {
	slogger, _ := newTestLogger()
	bus := nokk.NewBus()
	bus.EmitRunStart(context.Background(), "Triagem", "hello", nokk.NewRunContext())

	err := nokk.AttachLogListener(bus, slogger)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, nokk.ErrBusFrozen))
}
