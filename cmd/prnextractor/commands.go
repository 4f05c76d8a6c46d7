package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PoorvaU/prn-extractor/internal/config"
	"github.com/PoorvaU/prn-extractor/internal/exporter"
	"github.com/PoorvaU/prn-extractor/internal/model"
	"github.com/PoorvaU/prn-extractor/internal/server"
	"github.com/PoorvaU/prn-extractor/internal/service/workflow"
)

var exportFlags struct {
	kind       string
	department string
	class      string
	table      string
	out        string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "导出报表为 xlsx",
	Long: `按院系、年级或单表导出报表。
kind 取值: institute, department, individual, year-institute, year-department`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var dseAppendCmd = &cobra.Command{
	Use:   "dse-append",
	Short: "把 all_dse 中的学生分发到各院系二年级表",
	Args:  cobra.NoArgs,
	RunE:  runDSEAppend,
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "写出当前生效的配置 (config.toml)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.SaveConfig(cfg, configPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "配置已写入: %s\n", configPath)
		return nil
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFlags.kind, "kind", string(workflow.ExportIndividual), "报表类型")
	f.StringVar(&exportFlags.department, "department", "", "院系全称 (institute / department)")
	f.StringVar(&exportFlags.class, "class", "", "年级 FE/SE/TE/BE (year-institute / year-department)")
	f.StringVar(&exportFlags.table, "table", "", "表名 (individual)")
	f.StringVarP(&exportFlags.out, "out", "o", "", "输出文件 (默认写入数据目录 exports/)")
}

func runExport(cmd *cobra.Command, _ []string) error {
	req := workflow.ExportRequest{
		Kind:       workflow.ExportKind(strings.ToLower(exportFlags.kind)),
		Department: exportFlags.department,
		Table:      exportFlags.table,
	}
	if exportFlags.class != "" {
		class, ok := model.ParseClass(exportFlags.class)
		if !ok {
			return fmt.Errorf("unknown class %q", exportFlags.class)
		}
		req.Class = class
	}

	st, svc, err := server.OpenService(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	exp, err := svc.BuildExport(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := exportFlags.out
	if out == "" {
		out = config.GetDataPath(cfg, config.ExportsDir, exp.FileName+".xlsx")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}
	file, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := exporter.Write(file, exp.Sheets); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "已导出 %d 个工作表: %s\n", len(exp.Sheets), out)
	return nil
}

func runDSEAppend(cmd *cobra.Command, _ []string) error {
	st, svc, err := server.OpenService(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := svc.AppendDSE(cmd.Context())
	if res != nil {
		w := cmd.OutOrStdout()
		for _, r := range res.Reports {
			fmt.Fprintf(w, "%s: 新增 %d, 跳过 %d\n", r.Target, r.Appended, r.Skipped)
		}
		for _, t := range res.MissingTables {
			fmt.Fprintf(w, "缺少二年级表: %s\n", t)
		}
		for _, code := range res.UnknownCodes {
			fmt.Fprintf(w, "未知院系简称: %s\n", code)
		}
	}
	return err
}
