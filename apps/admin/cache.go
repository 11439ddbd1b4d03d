package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/catalog"
	cachesvc "github.com/8ddieHu0314/Course-Mapper-sub000/services/cache"
)

var errNotShared = errors.New("cache warm needs a reachable redis cache (cache.driver=redis): the in-memory cache is dropped when the command exits")

// warmConcurrency bounds the subjects fetched at once; the catalog client rate limits anyway.
const warmConcurrency = 4

func (cli *commandLine) newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the catalog cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}

	warmCmd := &cobra.Command{
		Use:   "warm",
		Short: "Fetch every subject of a roster so searches are served from the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, _ := cmd.Flags().GetString("roster")
			return cli.invoke(func(svc catalog.ServiceInterface, store cachesvc.Store) error {
				if _, ok := store.(*cachesvc.RedisStore); !ok {
					return errNotShared
				}
				return cli.warmCache(cmd.Context(), svc, roster)
			})
		},
	}
	warmCmd.Flags().StringP("roster", "r", "", "Roster to warm up (e.g. SP26)")
	_ = warmCmd.MarkFlagRequired("roster")

	cacheCmd.AddCommand(warmCmd)
	return cacheCmd
}

func (cli *commandLine) warmCache(ctx context.Context, svc catalog.ServiceInterface, roster string) error {
	roster = core.CleanUpper(roster)

	subjects, err := svc.Subjects(ctx, roster)
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}

	var (
		mu      sync.Mutex
		courses int
		failed  []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)
	for _, subj := range subjects {
		subj := subj
		g.Go(func() error {
			found, err := svc.Search(gctx, catalog.SearchQuery{Roster: roster, Subject: subj.Value})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed = append(failed, subj.Value)
				fmt.Fprintf(cli.out, "%s: %v\n", subj.Value, err)
				return nil
			}
			courses += len(found)
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s: warmed %d subjects (%d courses)\n", roster, len(subjects)-len(failed), courses)
	if len(failed) > 0 {
		return errors.Errorf("%d subjects failed", len(failed))
	}
	return nil
}
