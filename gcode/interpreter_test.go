package gcode

import (
	"bytes"
	"strings"
	"testing"

	"scancount/core"
)

type stubDir struct {
	forward bool
}

func (d *stubDir) Forward() bool { return d.forward }

// testDevice bundles an engine, an interpreter and its captured output
type testDevice struct {
	eng *core.Engine
	in  *Interpreter
	out *bytes.Buffer
	dir *stubDir
}

func newTestDevice(t *testing.T, columns, channels int) *testDevice {
	t.Helper()
	dir := &stubDir{forward: true}
	eng, err := core.NewEngine(core.EngineConfig{
		Columns:  columns,
		Channels: channels,
		Strategy: core.StrategyEdge,
		Dir:      dir,
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	out := &bytes.Buffer{}
	return &testDevice{
		eng: eng,
		in:  NewInterpreter(eng, out),
		out: out,
		dir: dir,
	}
}

// exec runs one command line and returns the response text
func (d *testDevice) exec(line string) string {
	d.out.Reset()
	d.in.Exec(line)
	return d.out.String()
}

func TestReportPosition(t *testing.T) {
	d := newTestDevice(t, 100, 1)

	if got := d.exec("M1001"); got != "ok\r\n0\r\n" {
		t.Errorf("M1001: got %q", got)
	}

	d.eng.StepEvent()
	d.eng.StepEvent()
	if got := d.exec("M1001"); got != "ok\r\n2\r\n" {
		t.Errorf("M1001 after 2 steps: got %q", got)
	}
}

func TestResetPosition(t *testing.T) {
	d := newTestDevice(t, 100, 1)

	d.eng.StepEvent()
	if got := d.exec("M1002"); got != "ok\r\n" {
		t.Errorf("M1002: got %q", got)
	}
	if got := d.exec("M1001"); got != "ok\r\n0\r\n" {
		t.Errorf("M1001 after reset: got %q", got)
	}

	d.exec("M1003")
	if got := d.exec("M1002"); got != "error: cannot reset position while counter is active\r\n" {
		t.Errorf("M1002 while armed: got %q", got)
	}
}

func TestArmDisarmResponses(t *testing.T) {
	d := newTestDevice(t, 100, 1)

	if got := d.exec("M1003"); got != "ok\r\n" {
		t.Errorf("M1003: got %q", got)
	}
	// Arming twice in a row: second call errors, state stays armed
	if got := d.exec("M1003"); got != "error: counter is already active\r\n" {
		t.Errorf("second M1003: got %q", got)
	}
	if !d.eng.Armed() {
		t.Error("failed arm must leave state armed")
	}

	if got := d.exec("M1004"); got != "ok\r\n" {
		t.Errorf("M1004: got %q", got)
	}
	if got := d.exec("M1004"); got != "error: counter is not active\r\n" {
		t.Errorf("second M1004: got %q", got)
	}
}

func TestCountingScenario(t *testing.T) {
	// The end-to-end accumulation scenario: reset, read empty column, arm,
	// move three columns with one pulse each, disarm, read back.
	d := newTestDevice(t, 8000, 1)

	if got := d.exec("M1006"); got != "ok\r\n" {
		t.Fatalf("M1006: got %q", got)
	}
	if got := d.exec("M1005 0 0 0"); got != "ok\r\n0 \r\nok\r\n" {
		t.Fatalf("M1005 0 0 0: got %q", got)
	}
	if got := d.exec("M1003"); got != "ok\r\n" {
		t.Fatalf("M1003: got %q", got)
	}

	for i := 0; i < 3; i++ {
		d.eng.PulseEvent(0)
		d.eng.StepEvent()
	}
	if got := d.exec("M1001"); got != "ok\r\n3\r\n" {
		t.Errorf("M1001: got %q", got)
	}

	if got := d.exec("M1004"); got != "ok\r\n" {
		t.Fatalf("M1004: got %q", got)
	}
	if got := d.exec("M1005 0 0 2"); got != "ok\r\n1 1 1 \r\nok\r\n" {
		t.Errorf("M1005 0 0 2: got %q", got)
	}
}

func TestReadErrors(t *testing.T) {
	d := newTestDevice(t, 8000, 2)

	tests := []struct {
		line string
		want string
	}{
		{"M1005", "error: read command requires three arguments\r\n"},
		{"M1005 0 0", "error: read command requires three arguments\r\n"},
		{"M1005 0 0 1 2", "error: read command requires three arguments\r\n"},
		{"M1005 0 zero 5", "error: read command requires three arguments\r\n"},
		{"M1005 2 0 5", "error: channel must be in the range 0..1\r\n"},
		{"M1005 -1 0 5", "error: channel must be in the range 0..1\r\n"},
		{"M1005 0 -1 5", "error: start column must be in the range 0..7999\r\n"},
		{"M1005 0 8000 8000", "error: start column must be in the range 0..7999\r\n"},
		{"M1005 0 0 8000", "error: end column must be in the range 0..7999\r\n"},
		{"M1005 0 5 4", "error: start column must be less than or equal to end column\r\n"},
	}
	for _, test := range tests {
		if got := d.exec(test.line); got != test.want {
			t.Errorf("%q: got %q, want %q", test.line, got, test.want)
		}
	}

	// State-conflict takes precedence over argument validation
	d.exec("M1003")
	if got := d.exec("M1005 0 0 5"); got != "error: cannot read counter while it is active\r\n" {
		t.Errorf("M1005 while armed: got %q", got)
	}
	if got := d.exec("M1005 9 bad args"); got != "error: cannot read counter while it is active\r\n" {
		t.Errorf("malformed M1005 while armed: got %q", got)
	}
}

func TestResetCountsGuard(t *testing.T) {
	d := newTestDevice(t, 100, 1)

	d.exec("M1003")
	if got := d.exec("M1006"); got != "error: cannot reset counter while it is active\r\n" {
		t.Errorf("M1006 while armed: got %q", got)
	}

	d.eng.PulseEvent(0)
	d.exec("M1004")
	if got := d.exec("M1006"); got != "ok\r\n" {
		t.Errorf("M1006: got %q", got)
	}
	if got := d.exec("M1005 0 0 0"); got != "ok\r\n0 \r\nok\r\n" {
		t.Errorf("M1005 after reset: got %q", got)
	}
}

func TestStatusCommand(t *testing.T) {
	d := newTestDevice(t, 100, 1)

	if got := d.exec("M1007"); got != "ok\r\narmed=0 position=0 clipped=0\r\nok\r\n" {
		t.Errorf("M1007: got %q", got)
	}

	d.exec("M1003")
	d.eng.StepEvent()
	for i := 0; i <= core.MaxCount; i++ {
		d.eng.PulseEvent(0)
	}
	if got := d.exec("M1007"); got != "ok\r\narmed=1 position=1 clipped=1\r\nok\r\n" {
		t.Errorf("M1007 after saturation: got %q", got)
	}

	d.exec("M1004")
	d.exec("M1006")
	if got := d.exec("M1007"); got != "ok\r\narmed=0 position=1 clipped=0\r\nok\r\n" {
		t.Errorf("M1007 after counts reset: got %q", got)
	}
}

func TestUnknownCommands(t *testing.T) {
	d := newTestDevice(t, 100, 1)

	tests := []struct {
		line string
		want string
	}{
		{"M9999", "error: unknown command 'M9999'\r\n"},
		{"G28", "error: unknown command 'G28'\r\n"},
		{"hello world", "error: unknown command 'hello world'\r\n"},
		{"M1001 5", "error: unknown command 'M1001 5'\r\n"},
		{"M1003 now", "error: unknown command 'M1003 now'\r\n"},
	}
	for _, test := range tests {
		if got := d.exec(test.line); got != test.want {
			t.Errorf("%q: got %q, want %q", test.line, got, test.want)
		}
	}
}

func TestFeedLineAssembly(t *testing.T) {
	d := newTestDevice(t, 100, 1)

	for _, c := range []byte("M1001\r\n") {
		d.in.Feed(c)
	}
	// The LF of the CRLF pair is ignored, not an empty-line error
	if got := d.out.String(); got != "ok\r\n0\r\n" {
		t.Errorf("CRLF command: got %q", got)
	}

	d.out.Reset()
	for _, c := range []byte("M1001\nM1001\n") {
		d.in.Feed(c)
	}
	if got := d.out.String(); got != "ok\r\n0\r\nok\r\n0\r\n" {
		t.Errorf("two LF commands: got %q", got)
	}
}

func TestFeedOverflow(t *testing.T) {
	d := newTestDevice(t, 100, 1)

	// 260 bytes without a terminator: one warning when the buffer fills,
	// then the last 5 bytes form the interpreted line.
	for i := 0; i < 255; i++ {
		d.in.Feed('X')
	}
	if got := d.out.String(); got != "" {
		t.Fatalf("no output expected while filling: %q", got)
	}
	for _, c := range []byte("M1001") {
		d.in.Feed(c)
	}
	if got := d.out.String(); got != overflowWarning {
		t.Fatalf("expected a single overflow warning, got %q", got)
	}

	d.out.Reset()
	d.in.Feed('\n')
	if got := d.out.String(); got != "ok\r\n0\r\n" {
		t.Errorf("post-overflow line: got %q", got)
	}
}

func TestService(t *testing.T) {
	d := newTestDevice(t, 100, 1)

	tr := &stubTransport{in: []byte("M1001\nM1003\n")}
	d.in.Service(tr)

	if got := d.out.String(); got != "ok\r\n0\r\nok\r\n" {
		t.Errorf("Service: got %q", got)
	}
	if !d.eng.Armed() {
		t.Error("M1003 via Service should arm the engine")
	}
}

// stubTransport feeds a fixed byte sequence and captures responses
type stubTransport struct {
	in  []byte
	out bytes.Buffer
}

func (t *stubTransport) Buffered() int { return len(t.in) }

func (t *stubTransport) ReadByte() (byte, error) {
	c := t.in[0]
	t.in = t.in[1:]
	return c, nil
}

func (t *stubTransport) Write(p []byte) (int, error) { return t.out.Write(p) }

func TestServiceWritesToTransport(t *testing.T) {
	// When the interpreter is built over the transport itself, responses
	// land there too (the firmware wiring).
	dir := &stubDir{forward: true}
	eng, err := core.NewEngine(core.EngineConfig{
		Columns:  16,
		Channels: 1,
		Strategy: core.StrategyEdge,
		Dir:      dir,
	})
	if err != nil {
		t.Fatal(err)
	}
	tr := &stubTransport{in: []byte("M1007\n")}
	in := NewInterpreter(eng, tr)
	in.Service(tr)

	if !strings.HasPrefix(tr.out.String(), "ok\r\n") {
		t.Errorf("expected ack on transport, got %q", tr.out.String())
	}
}
