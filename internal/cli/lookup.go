package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lzw429/OpenKE-Embedding-Service/api"
	"github.com/lzw429/OpenKE-Embedding-Service/client"
	"github.com/lzw429/OpenKE-Embedding-Service/model"
	"github.com/lzw429/OpenKE-Embedding-Service/subgraph"
)

func (a *app) lookupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Query a running openke server",
	}
	f := cmd.PersistentFlags()
	f.String("server", "http://localhost:8000", "server URL")
	f.Bool("strict", false, "fail on misses instead of substituting defaults")
	f.Duration("timeout", client.DefaultTimeout, "request timeout")

	cmd.AddCommand(
		a.lookupIDCommand(),
		a.lookupVectorCommand(),
		a.lookupVectorsCommand(),
		a.lookupAdjCommand(),
		a.lookupScoreCommand(),
		a.lookupSubgraphCommand(),
	)
	return cmd
}

func (a *app) client(ctx context.Context) (*client.Client, error) {
	cd, err := a.cfg.codec()
	if err != nil {
		return nil, err
	}
	return client.New(ctx, a.cfg.Server,
		client.WithTimeout(a.cfg.Timeout),
		client.WithLogger(a.logger),
		client.WithCodec(cd),
	)
}

func kindFlag(relation bool) model.Kind {
	if relation {
		return model.Relation
	}
	return model.Entity
}

func (a *app) lookupIDCommand() *cobra.Command {
	var relation bool
	cmd := &cobra.Command{
		Use:   "id <key>",
		Short: "Resolve a key to its id (-1 when unknown)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			kind := kindFlag(relation)
			var id model.ID
			if a.cfg.Strict {
				if id, err = c.IDByKey(ctx, kind, args[0]); err != nil {
					return err
				}
			} else {
				id = c.Fallback().IDByKey(ctx, kind, args[0])
			}
			if kind == model.Relation {
				return writeJSON(cmd.OutOrStdout(), api.RelationIDResponse{RelationID: api.WireID(id)})
			}
			return writeJSON(cmd.OutOrStdout(), api.EntityIDResponse{EntityID: api.WireID(id)})
		},
	}
	cmd.Flags().BoolVar(&relation, "relation", false, "look up a relation instead of an entity")
	return cmd
}

func (a *app) lookupVectorCommand() *cobra.Command {
	var relation, byID bool
	cmd := &cobra.Command{
		Use:   "vector <key|id>",
		Short: "Print the embedding of an entity or relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			kind := kindFlag(relation)

			var vec []float32
			if byID {
				wire, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("parse id: %w", err)
				}
				id, _ := api.ID(wire)
				if a.cfg.Strict {
					vec, err = c.VectorByID(ctx, kind, id)
				} else {
					vec = c.Fallback().VectorByID(ctx, kind, id)
				}
				if err != nil {
					return err
				}
			} else if a.cfg.Strict {
				if vec, err = c.VectorByKey(ctx, kind, args[0]); err != nil {
					return err
				}
			} else {
				vec = c.Fallback().VectorByKey(ctx, kind, args[0])
			}

			if kind == model.Relation {
				return writeJSON(cmd.OutOrStdout(), api.RelationEmbeddingResponse{RelationEmbedding: vec})
			}
			return writeJSON(cmd.OutOrStdout(), api.EntityEmbeddingResponse{EntityEmbedding: vec})
		},
	}
	cmd.Flags().BoolVar(&relation, "relation", false, "look up a relation instead of an entity")
	cmd.Flags().BoolVar(&byID, "id", false, "treat the argument as a numeric id")
	return cmd
}

func (a *app) lookupVectorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vectors <key>...",
		Short: "Print the embeddings of several entities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			var vecs [][]float32
			if a.cfg.Strict {
				if vecs, err = c.VectorsByKeys(ctx, args); err != nil {
					return err
				}
			} else {
				vecs = c.Fallback().VectorsByKeys(ctx, args)
			}
			return writeJSON(cmd.OutOrStdout(), api.EntityEmbeddingsResponse{EntityEmbeddings: vecs})
		},
	}
}

func (a *app) lookupAdjCommand() *cobra.Command {
	var inverse bool
	cmd := &cobra.Command{
		Use:   "adj <key>...",
		Short: "Print the triples incident to entities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			dir := model.Forward
			if inverse {
				dir = model.Inverse
			}
			var triples []model.Triple
			if a.cfg.Strict {
				if triples, err = c.AdjacencyByKeys(ctx, args, dir); err != nil {
					return err
				}
			} else {
				triples = c.Fallback().AdjacencyByKeys(ctx, args, dir)
			}
			if inverse {
				return writeJSON(cmd.OutOrStdout(), api.InverseAdjListResponse{InverseAdjList: api.FromTriples(triples)})
			}
			return writeJSON(cmd.OutOrStdout(), api.AdjListResponse{AdjList: api.FromTriples(triples)})
		},
	}
	cmd.Flags().BoolVar(&inverse, "inverse", false, "list triples where the entity is the object")
	return cmd
}

func (a *app) lookupScoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "score <subject-id> <object-id> <predicate-id>",
		Short: "Print the TransE distance of a triple",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var wire api.Triple
			for i, arg := range args {
				v, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("parse %q: %w", arg, err)
				}
				wire[i] = v
			}
			t, err := wire.Model()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			var score float32
			if a.cfg.Strict {
				if score, err = c.ScoreTriple(ctx, t); err != nil {
					return err
				}
			} else {
				score = c.Fallback().ScoreTriple(ctx, t)
			}
			return writeJSON(cmd.OutOrStdout(), api.ScoreResponse{Score: score})
		},
	}
}

func (a *app) lookupSubgraphCommand() *cobra.Command {
	var (
		seeds, answers []string
		inverse        bool
		concurrency    int
	)
	cmd := &cobra.Command{
		Use:   "subgraph",
		Short: "Assemble the one-hop subgraph around seed entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(seeds) == 0 {
				return fmt.Errorf("at least one --seed is required")
			}
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			dir := model.Forward
			if inverse {
				dir = model.Inverse
			}
			b := subgraph.NewBuilder(c.Fallback(), func(o *subgraph.Options) {
				o.Concurrency = concurrency
			})
			g, err := b.BuildFromSeeds(ctx, seeds, dir, answers)
			if err != nil {
				return err
			}
			if a.cfg.Strict && g.DroppedAnswers > 0 {
				return fmt.Errorf("%d answer keys did not resolve", g.DroppedAnswers)
			}
			return writeJSON(cmd.OutOrStdout(), g)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&seeds, "seed", nil, "seed entity keys")
	f.StringSliceVar(&answers, "answer", nil, "answer entity keys")
	f.BoolVar(&inverse, "inverse", false, "expand along inverse edges")
	f.IntVar(&concurrency, "concurrency", 4, "parallel vector fetches")
	return cmd
}
