package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	openke "github.com/lzw429/OpenKE-Embedding-Service"
	"github.com/lzw429/OpenKE-Embedding-Service/api"
	"github.com/lzw429/OpenKE-Embedding-Service/codec"
	"github.com/lzw429/OpenKE-Embedding-Service/model"
)

type entityInfo struct {
	Key       string `json:"key"`
	ID        int64  `json:"id"`
	OutDegree int    `json:"out_degree"`
	InDegree  int    `json:"in_degree"`
}

type inspectReport struct {
	Stats    openke.Stats `json:"stats"`
	Entities []entityInfo `json:"entities,omitempty"`
}

func (a *app) inspectCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect [entity-key...]",
		Short: "Load a dataset and print its counts and the degree of the given entities",
		RunE: func(cmd *cobra.Command, keys []string) error {
			svc, err := a.openService(cmd.Context(), openke.NoopMetricsCollector{})
			if err != nil {
				return err
			}
			defer svc.Close()

			report := inspectReport{Stats: svc.Stats()}
			for _, key := range keys {
				report.Entities = append(report.Entities, describe(svc, key))
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return renderReport(cmd.OutOrStdout(), report)
		},
	}
	addDatasetFlags(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of tables")
	return cmd
}

func describe(svc *openke.Service, key string) entityInfo {
	info := entityInfo{Key: key, ID: -1}
	id, err := svc.EntityID(key)
	if err != nil {
		return info
	}
	info.ID = api.WireID(id)
	out, _ := svc.Adjacency(key, model.Forward)
	in, _ := svc.Adjacency(key, model.Inverse)
	info.OutDegree, info.InDegree = len(out), len(in)
	return info
}

func renderReport(w io.Writer, r inspectReport) error {
	table := tablewriter.NewWriter(w)
	table.Header("Dataset", "Value")
	rows := [][2]string{
		{"entities", strconv.Itoa(r.Stats.Entities)},
		{"relations", strconv.Itoa(r.Stats.Relations)},
		{"entity vectors", strconv.Itoa(r.Stats.EntityVectors)},
		{"relation vectors", strconv.Itoa(r.Stats.RelationVectors)},
		{"triples", strconv.Itoa(r.Stats.Triples)},
		{"entity dimension", strconv.Itoa(r.Stats.EntityDimension)},
		{"relation dimension", strconv.Itoa(r.Stats.RelationDimension)},
	}
	for _, row := range rows {
		if err := table.Append(row[0], row[1]); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	if len(r.Entities) == 0 {
		return nil
	}

	table = tablewriter.NewWriter(w)
	table.Header("Key", "ID", "Out", "In")
	for _, e := range r.Entities {
		id := "not found"
		if e.ID >= 0 {
			id = strconv.FormatInt(e.ID, 10)
		}
		if err := table.Append(e.Key, id, strconv.Itoa(e.OutDegree), strconv.Itoa(e.InDegree)); err != nil {
			return err
		}
	}
	return table.Render()
}

func writeJSON(w io.Writer, v any) error {
	data, err := codec.Default.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
