package contextfactory

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/vibetemplate/prompthub/internal/errs"
)

const (
	maxLaunchRetries = 5
	launchBackoff    = time.Second
	cdpReadyTimeout  = 15 * time.Second
)

// PersistentConfig configures the local-browser variant (spec.md §4.5,
// "Persistent").
type PersistentConfig struct {
	ExecutablePath string // empty: auto-detect
	UserDataDir    string // empty: per-OS cache location
	CDPPort        int    // 0: 9222
	Headless       bool
	NoSandbox      bool
}

// PersistentFactory launches a local Chromium-family browser against a
// user-data directory and connects to it over CDP.
type PersistentFactory struct {
	cfg PersistentConfig
}

// NewPersistentFactory builds a PersistentFactory, filling in defaults for
// any unset config fields.
func NewPersistentFactory(cfg PersistentConfig) (*PersistentFactory, error) {
	if cfg.UserDataDir == "" {
		dir, err := defaultUserDataDir()
		if err != nil {
			return nil, fmt.Errorf("%w: resolving user data dir: %v", errs.ErrBrowserUnavailable, err)
		}
		cfg.UserDataDir = dir
	}
	if cfg.CDPPort == 0 {
		cfg.CDPPort = 9222
	}
	return &PersistentFactory{cfg: cfg}, nil
}

func defaultUserDataDir() (string, error) {
	if dir := os.Getenv("PROMPTHUB_DATA_DIR"); dir != "" {
		return filepath.Join(dir, "browser-profile"), nil
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "prompthub-bridge", "browser-profile"), nil
}

// CreateContext launches Chrome, retrying on "profile locked" style
// failures up to maxLaunchRetries times with a fixed backoff (spec.md
// §4.5).
func (f *PersistentFactory) CreateContext() (*Context, Disposer, error) {
	exe, err := findChromeExecutable(f.cfg.ExecutablePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errs.ErrBrowserUnavailable, err)
	}

	if err := os.MkdirAll(f.cfg.UserDataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("%w: creating user data dir: %v", errs.ErrBrowserUnavailable, err)
	}

	var cmd *exec.Cmd
	var lastErr error
	for attempt := 0; attempt < maxLaunchRetries; attempt++ {
		cmd, lastErr = launchChrome(exe, f.cfg)
		if lastErr == nil {
			break
		}
		if !isProfileLockedError(lastErr) {
			return nil, nil, fmt.Errorf("%w: %v", errs.ErrBrowserUnavailable, lastErr)
		}
		log.Warn("chrome profile locked, retrying", "attempt", attempt+1, "error", lastErr)
		time.Sleep(launchBackoff)
	}
	if lastErr != nil {
		return nil, nil, fmt.Errorf("%w: profile locked after %d attempts: %v", errs.ErrBrowserUnavailable, maxLaunchRetries, lastErr)
	}

	cdpURL := fmt.Sprintf("http://127.0.0.1:%d", f.cfg.CDPPort)
	if !waitForCDPReady(cdpURL, cdpReadyTimeout) {
		_ = cmd.Process.Kill()
		return nil, nil, fmt.Errorf("%w: chrome CDP did not come up on port %d within %s", errs.ErrBrowserUnavailable, f.cfg.CDPPort, cdpReadyTimeout)
	}

	pw, err := playwright.Run()
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, nil, fmt.Errorf("%w: starting playwright driver: %v", errs.ErrBrowserUnavailable, err)
	}

	browser, err := connectOverCDP(pw, fmt.Sprintf("ws://127.0.0.1:%d", f.cfg.CDPPort), nil)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = pw.Stop()
		return nil, nil, err
	}

	ctx, err := wrapBrowser(pw, browser)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = pw.Stop()
		return nil, nil, err
	}

	dispose := func() error {
		_ = browser.Close()
		_ = pw.Stop()
		if cmd.Process != nil {
			_ = cmd.Process.Signal(os.Interrupt)
			done := make(chan error, 1)
			go func() { done <- cmd.Wait() }()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				_ = cmd.Process.Kill()
			}
		}
		return nil
	}

	return ctx, dispose, nil
}

func launchChrome(exe string, cfg PersistentConfig) (*exec.Cmd, error) {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", cfg.CDPPort),
		fmt.Sprintf("--user-data-dir=%s", cfg.UserDataDir),
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-sync",
		"--disable-background-networking",
		"--disable-component-update",
		"--password-store=basic",
	}
	if cfg.Headless {
		args = append(args, "--headless=new", "--disable-gpu")
	}
	if cfg.NoSandbox {
		args = append(args, "--no-sandbox", "--disable-setuid-sandbox")
	}
	if runtime.GOOS == "linux" {
		args = append(args, "--disable-dev-shm-usage")
	}
	args = append(args, "about:blank")

	cmd := exec.Command(exe, args...)
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func isProfileLockedError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return contains(msg, "SingletonLock") || contains(msg, "profile") && contains(msg, "lock")
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func waitForCDPReady(cdpURL string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if isCDPReachable(cdpURL, 500*time.Millisecond) {
			return true
		}
		time.Sleep(200 * time.Millisecond)
	}
	return false
}
