package cli

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"

	"tonearm.click/internal/audio"
	"tonearm.click/internal/config"
	"tonearm.click/internal/tracking"
)

// writeWAV stores a 44.1 kHz 16-bit file whose left channel counts frames
// modulo 1000 and whose right channel is the negated left
func writeWAV(t *testing.T, fs afero.Fs, path string, frames, channels int) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	f, err := fs.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	data := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			v := i % 1000
			if ch == 1 {
				v = -v
			}
			data[i*channels+ch] = v
		}
	}
	enc := wav.NewEncoder(f, 44100, 16, channels, 1)
	if err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

// runCLI runs one command line against a fresh CLI and restores the default
// logger afterwards
func runCLI(t *testing.T, c *CLI, args ...string) (int, string, string) {
	t.Helper()
	saved := slog.Default()
	t.Cleanup(func() { slog.SetDefault(saved) })

	var stdout, stderr bytes.Buffer
	code := c.Run(append([]string{"tonearm"}, args...), strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLI(t *testing.T) {
	cli := NewCLI()
	if cli.rootCmd == nil || cli.rootCmd.Use != "tonearm" {
		t.Fatal("root command not configured")
	}

	var names []string
	for _, cmd := range cli.rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"info", "decode", "formats", "history", "config"} {
		if !strings.Contains(strings.Join(names, " "), want) {
			t.Errorf("missing %s command, have %v", want, names)
		}
	}
}

func TestCLI_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, NewCLIWithFilesystem(afero.NewMemMapFs()), "--version")
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if want := "tonearm version " + Version; !strings.Contains(stdout, want) {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestCLI_InvalidLogLevel(t *testing.T) {
	code, _, stderr := runCLI(t, NewCLIWithFilesystem(afero.NewMemMapFs()), "--log-level", "chatty", "formats")
	if code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr, "invalid log level") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestInfoCommand(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "/music/a.wav", 1000, 2)

	code, stdout, stderr := runCLI(t, NewCLIWithFilesystem(fs), "--no-history", "info", "/music/a.wav", "/music/a")
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d report lines, want 2 (explicit path and resolved extension):\n%s", len(lines), stdout)
	}
	for _, want := range []string{`file="/music/a.wav"`, `type="WAVE"`, "total_frames=1000", "position_mode=native", "seekable=true", "duration=23ms"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("report %q missing %q", lines[0], want)
		}
	}
}

func TestInfoCommand_Table(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "/music/a.wav", 441, 1)

	cli := NewCLIWithFilesystem(fs)
	report := reportFor(mustOpen(t, cli, "/music/a.wav"))

	var buf bytes.Buffer
	printReportTable(&buf, []fileReport{report})
	for _, want := range []string{"Type", "WAVE", "Frames", "441", "Duration", "10ms", "Channel layout"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("table missing %q:\n%s", want, buf.String())
		}
	}
}

func mustOpen(t *testing.T, cli *CLI, path string) *openedFile {
	t.Helper()
	f, err := cli.openFile(path)
	if err != nil {
		t.Fatalf("openFile(%s) failed: %v", path, err)
	}
	t.Cleanup(f.Close)
	return f
}

func TestInfoCommand_MissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "/music/a.wav", 10, 2)

	code, stdout, stderr := runCLI(t, NewCLIWithFilesystem(fs), "--no-history", "info", "/music/a.wav", "/music/none.wav")
	if code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
	if !strings.Contains(stdout, "/music/a.wav") {
		t.Error("report for the readable file was not printed")
	}
	if !strings.Contains(stderr, "/music/none.wav") || !strings.Contains(stderr, "1 of 2 files") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestDecodeCommand(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "/music/a.wav", 1000, 2)

	code, stdout, stderr := runCLI(t, NewCLIWithFilesystem(fs),
		"--no-history", "decode", "--start-frame", "100", "--frames", "500", "/music/a.wav", "/out/b.wav")
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "wrote 500 frames to /out/b.wav") {
		t.Errorf("stdout = %q", stdout)
	}

	f, err := fs.Open("/out/b.wav")
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	defer f.Close()
	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatalf("output is not a readable WAV: %v", err)
	}
	if d.BitDepth != 16 || d.NumChans != 2 || d.SampleRate != 44100 {
		t.Errorf("output format = %d bit, %d ch, %d Hz", d.BitDepth, d.NumChans, d.SampleRate)
	}
	if got := buf.NumFrames(); got != 500 {
		t.Errorf("output has %d frames, want 500", got)
	}
	if buf.Data[0] != 100 || buf.Data[1] != -100 {
		t.Errorf("first frame = [%d %d], want [100 -100]", buf.Data[0], buf.Data[1])
	}
}

func TestDecodeCommand_MonoTo24Bit(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "/music/m.wav", 64, 1)

	code, _, stderr := runCLI(t, NewCLIWithFilesystem(fs), "--no-history", "decode", "--bit-depth", "24", "/music/m.wav", "/out/m.wav")
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}

	f, _ := fs.Open("/out/m.wav")
	defer f.Close()
	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if d.BitDepth != 24 || d.NumChans != 2 {
		t.Errorf("output format = %d bit, %d ch", d.BitDepth, d.NumChans)
	}
	if buf.NumFrames() != 64 {
		t.Errorf("output has %d frames, want 64", buf.NumFrames())
	}
	for i := 0; i < len(buf.Data); i += 2 {
		if buf.Data[i] != buf.Data[i+1] {
			t.Fatalf("frame %d not duplicated: %d %d", i/2, buf.Data[i], buf.Data[i+1])
		}
	}
}

func TestDecodeCommand_UndecodableAAC(t *testing.T) {
	// Four ADTS packets of silence; the container opens but AAC is not decoded
	var data []byte
	for i := 0; i < 4; i++ {
		hdr := []byte{0xFF, 0xF1, 0x01<<6 | 4<<2, 2 << 6, 64 >> 3, 0x1F, 0xFC}
		data = append(data, hdr...)
		data = append(data, make([]byte, 64-len(hdr))...)
	}
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/music/clip.aac", data, 0644); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := runCLI(t, NewCLIWithFilesystem(fs), "--no-history", "decode", "/music/clip.aac", "/out/clip.wav")
	if code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
	if strings.Contains(stdout, "wrote") {
		t.Errorf("stdout reports success: %q", stdout)
	}
	if !strings.Contains(stderr, "decoding failed") || !strings.Contains(stderr, "frame 0 of 4096") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestDecodeCommand_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "/music/a.wav", 100, 2)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"bad bit depth", []string{"--bit-depth", "20", "/music/a.wav", "/out/x.wav"}, "bit depth must be 16 or 24"},
		{"start past end", []string{"--start-frame", "100", "/music/a.wav", "/out/x.wav"}, "cannot start at frame 100"},
		{"negative frames", []string{"--frames", "-1", "/music/a.wav", "/out/x.wav"}, "must not be negative"},
		{"missing input", []string{"/music/nothing.wav", "/out/x.wav"}, "no audio file found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--no-history", "decode"}, tt.args...)
			code, _, stderr := runCLI(t, NewCLIWithFilesystem(fs), args...)
			if code != 1 {
				t.Errorf("exit code %d, want 1", code)
			}
			if !strings.Contains(stderr, tt.wantErr) {
				t.Errorf("stderr = %q, want %q", stderr, tt.wantErr)
			}
		})
	}
}

func TestFormatsCommand(t *testing.T) {
	fs := afero.NewMemMapFs()

	code, stdout, _ := runCLI(t, NewCLIWithFilesystem(fs), "--no-history", "formats")
	if code != 0 || !strings.Contains(stdout, "wav") || !strings.Contains(stdout, "audio/flac") {
		t.Errorf("formats = %d, %q", code, stdout)
	}

	code, stdout, _ = runCLI(t, NewCLIWithFilesystem(fs), "--no-history", "formats", "--extension", ".FLAC", "--mime", "audio/x-wav")
	if code != 0 {
		t.Errorf("supported check exit code %d", code)
	}
	if !strings.Contains(stdout, "extension FLAC: supported") || !strings.Contains(stdout, "mime audio/x-wav: supported") {
		t.Errorf("stdout = %q", stdout)
	}

	code, stdout, _ = runCLI(t, NewCLIWithFilesystem(fs), "--no-history", "formats", "--extension", "xyz")
	if code != 1 || !strings.Contains(stdout, "extension xyz: not supported") {
		t.Errorf("unsupported check = %d, %q", code, stdout)
	}
}

func TestHistoryCommand(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "/music/a.wav", 1000, 2)
	t.Setenv("TONEARM_HISTORY_DB", filepath.Join(t.TempDir(), "history.db"))

	runCLI(t, NewCLIWithFilesystem(fs), "info", "/music/a.wav")
	runCLI(t, NewCLIWithFilesystem(fs), "decode", "--frames", "500", "/music/a.wav", "/out/a.wav")
	runCLI(t, NewCLIWithFilesystem(fs), "info", "/music/none.wav")

	code, stdout, stderr := runCLI(t, NewCLIWithFilesystem(fs), "history", "--since", "1 hour ago")
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "3 sessions, 1 failed, 2 sources, 500 frames decoded") {
		t.Errorf("summary missing:\n%s", stdout)
	}
	for _, want := range []string{"WAVE", "decode", "/music/none.wav", "no audio file found"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("listing missing %q:\n%s", want, stdout)
		}
	}

	code, stdout, _ = runCLI(t, NewCLIWithFilesystem(fs), "history", "--failed")
	if code != 0 || !strings.Contains(stdout, "1 sessions, 1 failed") {
		t.Errorf("--failed = %d:\n%s", code, stdout)
	}
}

func TestHistoryCommand_Disabled(t *testing.T) {
	code, _, stderr := runCLI(t, NewCLIWithFilesystem(afero.NewMemMapFs()), "--no-history", "history")
	if code != 1 || !strings.Contains(stderr, "disabled") {
		t.Errorf("history without history = %d, %q", code, stderr)
	}
}

func TestRecord_ErrorCodes(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/music/bad.wav", []byte("this is not a wave file at all"), 0644)

	var events []*tracking.DecodeEvent
	cli := NewCLIWithFilesystem(fs)
	cli.tracker = tracking.NewTracker(tracking.WithHook(func(e *tracking.DecodeEvent) {
		events = append(events, e)
	}))

	runCLI(t, cli, "--no-history", "info", "/music/bad.wav", "/music/none.wav")
	if len(events) != 2 {
		t.Fatalf("recorded %d events, want 2", len(events))
	}

	if events[0].ErrorCode <= 0 {
		t.Errorf("unreadable file recorded code %d, want a decoder error code", events[0].ErrorCode)
	}
	if events[1].ErrorCode != tracking.ErrorCodeOther {
		t.Errorf("missing file recorded code %d, want ErrorCodeOther", events[1].ErrorCode)
	}

	cli.record("decode", "x.wav", nil, 0, fmt.Errorf("open: %w", audio.ErrFileFormatNotSupported), nil)
	last := events[len(events)-1]
	if last.ErrorCode != int(audio.ErrCodeFileFormatNotSupported) || last.TotalFrames != -1 {
		t.Errorf("wrapped decoder error recorded as %+v", last)
	}
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tonearm", "config.json")
	osFs := afero.NewOsFs()

	code, stdout, stderr := runCLI(t, NewCLIWithFilesystem(osFs), "--no-history", "config", "init", "--path", path)
	if code != 0 {
		t.Fatalf("config init exit code %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, path) {
		t.Errorf("stdout = %q", stdout)
	}

	code, _, stderr = runCLI(t, NewCLIWithFilesystem(osFs), "--no-history", "config", "init", "--path", path)
	if code != 1 || !strings.Contains(stderr, config.ErrConfigExists.Error()) {
		t.Errorf("second init = %d, %q", code, stderr)
	}

	if err := os.WriteFile(path, []byte(`{"log_level":"error","decode":{"buffer_frames":512}}`), 0644); err != nil {
		t.Fatal(err)
	}
	code, stdout, _ = runCLI(t, NewCLIWithFilesystem(osFs), "--no-history", "--config", path, "config", "show")
	if code != 0 || !strings.Contains(stdout, `"buffer_frames": 512`) || !strings.Contains(stdout, `"log_level": "error"`) {
		t.Errorf("config show = %d:\n%s", code, stdout)
	}

	code, _, _ = runCLI(t, NewCLIWithFilesystem(osFs), "--no-history", "config", "init", "--path", path, "--force")
	if code != 0 {
		t.Errorf("forced init exit code %d", code)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"buffer_frames": 4096`) {
		t.Errorf("forced init did not write defaults:\n%s", data)
	}
}

func TestSetupLogging_FileLogging(t *testing.T) {
	saved := slog.Default()
	defer slog.SetDefault(saved)

	logPath := filepath.Join(t.TempDir(), "logs", "tonearm.log")
	mgr := config.NewConfigManager()
	cfg := mgr.GetDefaultConfig()
	cfg.LogLevel = "warn"
	cfg.FileLogging.Enabled = true
	cfg.FileLogging.Filename = logPath

	var stderr bytes.Buffer
	setupLogging(mgr, cfg, &stderr)
	slog.Info("decoder selected", "variant", "toolbox")
	slog.Warn("read failed", "frames", 0)

	if strings.Contains(stderr.String(), "decoder selected") {
		t.Error("info record reached stderr at warn level")
	}
	if !strings.Contains(stderr.String(), "read failed") {
		t.Error("warn record missing from stderr")
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "decoder selected") || !strings.Contains(string(data), "read failed") {
		t.Errorf("log file = %s", data)
	}
}

func TestOpenFile_NoDecoder(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/notes.txt", []byte("plain text"), 0644)

	_, err := NewCLIWithFilesystem(fs).openFile("/notes.txt")
	if !errors.Is(err, audio.ErrNoDecoder) {
		t.Errorf("error = %v, want ErrNoDecoder", err)
	}
}
