/*
Copyright © 2024 the SeisMap authors.
This file is part of SeisMap.

SeisMap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SeisMap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SeisMap.  If not, see <http://www.gnu.org/licenses/>.
*/

package forecastio

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// MaybeDownload checks if path is an existing local file and if so
// returns it unchanged. If path is an http:// or https:// URL, it
// downloads the file to a temporary directory, retrying transient
// failures with exponential backoff, and returns the path to the
// downloaded copy. Any other path is returned unchanged for the
// caller's open to fail on.
func MaybeDownload(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return path, nil
	}
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		return path, nil
	}

	u, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("forecastio: downloading %s: %v", path, err)
	}
	dir, err := os.MkdirTemp("", "seismap")
	if err != nil {
		return "", fmt.Errorf("forecastio: creating temporary download directory: %v", err)
	}
	base := filepath.Base(u.Path)
	if base == "." || base == "/" {
		base = "download"
	}
	out := filepath.Join(dir, base)

	err = backoff.RetryNotify(
		func() error {
			return downloadHTTP(ctx, path, out)
		},
		backoff.WithMaxRetries(backoff.WithContext(backoff.NewExponentialBackOff(), ctx), 5),
		func(err error, d time.Duration) {
			log.Printf("%v: retrying in %v", err, d)
		},
	)
	if err != nil {
		return "", fmt.Errorf("forecastio: downloading %s: %v", path, err)
	}
	return out, nil
}

// downloadHTTP fetches url into the file out.
func downloadHTTP(ctx context.Context, url, out string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %s", resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}
	w, err := os.Create(out)
	if err != nil {
		return backoff.Permanent(err)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
