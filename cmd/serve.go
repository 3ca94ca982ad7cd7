package cmd

import (
	"context"
	"net"
	"net/http"
	"os"

	"github.com/djcass44/apt-depot/internal/server"
	v1 "github.com/djcass44/apt-depot/pkg/api/v1"
	"github.com/djcass44/apt-depot/pkg/apt"
	"github.com/djcass44/apt-depot/pkg/aptindex"
	"github.com/djcass44/apt-depot/pkg/blobstore"
	"github.com/djcass44/apt-depot/pkg/store"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/util/yaml"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve a repository",
	RunE:  serve,
}

const (
	flagConfig = "config"
	flagAddr   = "addr"
)

func init() {
	serveCmd.Flags().StringP(flagConfig, "c", "", "path to a repository configuration file")
	serveCmd.Flags().String(flagAddr, ":8080", "address to listen on")

	_ = serveCmd.MarkFlagRequired(flagConfig)
	_ = serveCmd.MarkFlagFilename(flagConfig, ".yaml", ".yml")
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logr.FromContextOrDiscard(ctx)

	configPath, _ := cmd.Flags().GetString(flagConfig)
	addr, _ := cmd.Flags().GetString(flagAddr)

	repo, err := readConfig(configPath)
	if err != nil {
		return err
	}
	// configuration is validated up front so a broken repository
	// never starts accepting uploads
	cfg, err := apt.NewConfig(repo.Spec.Apt.Distribution, repo.Spec.Apt.Flat)
	if err != nil {
		return err
	}

	blobs, err := blobstore.NewStore(repo.Spec.Storage.BlobDir)
	if err != nil {
		return err
	}
	db, err := store.Open(ctx, repo.Spec.Storage.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	facet := apt.NewContentFacet(cfg, apt.WritePolicy(repo.Spec.WritePolicy), blobs, db)
	handler := server.New(facet, aptindex.NewBuilder(facet))

	log.Info("starting server", "addr", addr, "distribution", cfg.Distribution(), "flat", cfg.Flat())
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
	return srv.ListenAndServe()
}

func readConfig(s string) (v1.Repository, error) {
	f, err := os.Open(s)
	if err != nil {
		return v1.Repository{}, err
	}

	var config v1.Repository
	if err := yaml.NewYAMLOrJSONDecoder(f, 4).Decode(&config); err != nil {
		return v1.Repository{}, err
	}
	return config, nil
}
