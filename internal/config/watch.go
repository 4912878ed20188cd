package config

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/providers/file"
)

// Watch invokes onChange every time the config file named by SPEEDHUD_CONFIG
// changes, until ctx is done. It is a no-op when no file is configured.
// onChange runs on the watcher goroutine.
func Watch(ctx context.Context, onChange func(ctx context.Context)) error {
	path := Path()
	if path == "" {
		return nil
	}

	fp := file.Provider(path)
	err := fp.Watch(func(_ interface{}, err error) {
		if err != nil || ctx.Err() != nil {
			return
		}
		onChange(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: watch %s: %w", ErrLoadConfig, path, err)
	}

	go func() {
		<-ctx.Done()
		_ = fp.Unwatch()
	}()
	return nil
}
