package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/jgivc/rinupdate/internal/common"
	"github.com/jgivc/rinupdate/internal/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type scriptedPrompter struct {
	answers  []string
	notified []string
}

func (p *scriptedPrompter) Ask(string) (string, error) {
	if len(p.answers) == 0 {
		return "", io.EOF
	}

	a := p.answers[0]
	p.answers = p.answers[1:]

	return a, nil
}

func (p *scriptedPrompter) Notify(msg string) {
	p.notified = append(p.notified, msg)
}

type recorder struct {
	name string
	args []string
	err  error
}

func (r *recorder) start(name string, args ...string) error {
	r.name = name
	r.args = args

	return r.err
}

func notInPath(string) (string, error) {
	return "", errors.New("not found")
}

func TestDispatch(t *testing.T) {
	exe := "JDownloader2.exe"

	testCases := []struct {
		name        string
		home        string
		lookPath    func(string) (string, error)
		answers     []string
		expectedExe string
		notified    int
	}{
		{
			name:        "Home directory",
			home:        "/opt/jd2",
			lookPath:    notInPath,
			expectedExe: filepath.Join("/opt/jd2", exe),
		},
		{
			name: "Search path",
			home: "/missing",
			lookPath: func(string) (string, error) {
				return "/usr/bin/" + exe, nil
			},
			expectedExe: "/usr/bin/" + exe,
		},
		{
			name:        "Executable given by user",
			lookPath:    notInPath,
			answers:     []string{"/nowhere/jd", "  /data/bin/" + exe + "  "},
			expectedExe: "/data/bin/" + exe,
			notified:    1,
		},
		{
			name:        "Directory given by user",
			lookPath:    notInPath,
			answers:     []string{"", "/empty", "/data/bin"},
			expectedExe: "/data/bin/" + exe,
			notified:    2,
		},
		{
			name:        "Subdirectories are not searched",
			lookPath:    notInPath,
			answers:     []string{"/data", "/"},
			expectedExe: "/" + exe,
			notified:    1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, filepath.Join("/opt/jd2", exe), []byte("x"), 0o755))
			require.NoError(t, afero.WriteFile(fs, filepath.Join("/data/bin", exe), []byte("x"), 0o755))
			require.NoError(t, fs.MkdirAll("/empty", 0o755))
			require.NoError(t, afero.WriteFile(fs, "/"+exe, []byte("x"), 0o755))

			p := &scriptedPrompter{answers: tc.answers}
			rec := &recorder{}
			s := NewServiceWithFS(fs, &config.DownloaderConfig{Executable: exe, Directive: "-add-link"}, tc.home, p,
				tc.lookPath, rec.start, slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})))

			err := s.Dispatch(context.Background(), []string{"https://a/1", "https://b/2"})
			require.NoError(t, err)
			require.Equal(t, tc.expectedExe, rec.name)
			require.Equal(t, []string{"-add-link", "https://a/1", "https://b/2"}, rec.args)
			require.Len(t, p.notified, tc.notified)
		})
	}
}

func TestDispatchErrors(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	cfg := &config.DownloaderConfig{Executable: "JDownloader2.exe", Directive: "-add-link"}
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/jd/JDownloader2.exe", []byte("x"), 0o755))

	rec := &recorder{}
	s := NewServiceWithFS(fs, cfg, "", &scriptedPrompter{}, notInPath, rec.start, log)

	err := s.Dispatch(context.Background(), nil)
	require.ErrorIs(t, err, common.ErrNoLinks)

	err = s.Dispatch(context.Background(), []string{"https://a/1"})
	require.ErrorIs(t, err, common.ErrNoExecutable)
	require.Empty(t, rec.name, "nothing must be spawned")

	rec.err = errors.New("exec format error")
	s = NewServiceWithFS(fs, cfg, "/jd", &scriptedPrompter{}, notInPath, rec.start, log)
	err = s.Dispatch(context.Background(), []string{"https://a/1"})
	require.ErrorIs(t, err, common.ErrSpawn)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s = NewServiceWithFS(fs, cfg, "", &scriptedPrompter{answers: []string{"/jd"}}, notInPath, rec.start, log)
	_, err = s.Locate(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStartMissingBinary(t *testing.T) {
	require.Error(t, Start(filepath.Join(t.TempDir(), "missing")))
}
