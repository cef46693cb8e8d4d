package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/spf13/cobra"
)

// BurstResult summarises one burst of concurrent requests.
type BurstResult struct {
	Statuses map[int]int
	Errors   []error
	Cycles   uint64
}

func newBurstCommand(opts *rootOptions) *cobra.Command {
	var (
		n     int
		stale bool
	)

	cmd := &cobra.Command{
		Use:   "burst <path>",
		Short: "Fire N concurrent GETs and report how many refresh cycles ran",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if n < 1 {
				return fmt.Errorf("-n must be at least 1")
			}
			role, err := opts.parseRole()
			if err != nil {
				return err
			}
			client, cleanup, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := client.EnsureLogin(cmd.Context(), role); err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if stale {
				if err := client.SpoilAccessToken(cmd.Context(), role); err != nil {
					return err
				}
			}

			res, err := client.Burst(cmd.Context(), role, args[0], n)
			if err != nil {
				return err
			}
			printBurst(cmd.OutOrStdout(), role, n, res)
			if len(res.Errors) > 0 {
				return fmt.Errorf("%d of %d requests failed", len(res.Errors), n)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "requests", "n", 10, "number of concurrent requests")
	cmd.Flags().BoolVar(&stale, "stale", false, "replace the stored access token first so every request needs a refresh")
	return cmd
}

// Burst sends n concurrent GETs for role and counts the refresh cycles they caused.
func (c *Client) Burst(ctx context.Context, role credentials.Role, path string, n int) (*BurstResult, error) {
	session, err := c.Registry.Get(role)
	if err != nil {
		return nil, err
	}
	before := session.Snapshot().CompletedCycles

	res := &BurstResult{Statuses: map[int]int{}}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Get(ctx, role, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors = append(res.Errors, err)
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			res.Statuses[resp.StatusCode]++
		}()
	}
	wg.Wait()

	session.Wait()
	res.Cycles = session.Snapshot().CompletedCycles - before
	return res, nil
}

func printBurst(w io.Writer, role credentials.Role, n int, res *BurstResult) {
	codes := make([]int, 0, len(res.Statuses))
	for code := range res.Statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	fmt.Fprintf(w, "%d %s requests, %d refresh cycle(s)\n", n, role, res.Cycles)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d %s: %d\n", code, http.StatusText(code), res.Statuses[code])
	}
	for _, err := range res.Errors {
		fmt.Fprintf(w, "  error: %v\n", err)
	}
}
