// Package render 将赛程转换为纯文本，供命令行和邮件使用
package render

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/scheduler"
)

// Table 每一轮一行，venues 个场地各一列，列出在该场地比赛的参赛者（从 1 开始编号），空场地显示为 _
// 超出 venues 的场地编号也会显示
func Table(g *scheduler.Grid, venues int) string {
	for _, v := range g.Cells {
		venues = max(venues, v)
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := []string{"Round"}
	for v := 1; v <= venues; v++ {
		header = append(header, fmt.Sprintf("V%d", v))
	}
	fmt.Fprintln(w, strings.Join(header, "\t")+"\t")

	for r := 0; r < g.Rounds; r++ {
		cols := []string{fmt.Sprintf("%d", r+1)}
		for v := 1; v <= venues; v++ {
			var players []string
			for p, venue := range g.Row(r) {
				if venue == v {
					players = append(players, fmt.Sprintf("%d", p+1))
				}
			}
			if len(players) == 0 {
				cols = append(cols, "_")
			} else {
				cols = append(cols, strings.Join(players, ","))
			}
		}
		fmt.Fprintln(w, strings.Join(cols, "\t")+"\t")
	}

	_ = w.Flush()
	return sb.String()
}

// Rounds 按轮列出每个参赛者所在的场地或轮空
func Rounds(g *scheduler.Grid) string {
	var sb strings.Builder
	for r := 0; r < g.Rounds; r++ {
		fmt.Fprintf(&sb, "Round %d:\n", r+1)
		for p, venue := range g.Row(r) {
			if venue == 0 {
				fmt.Fprintf(&sb, "  participant %d: rest\n", p+1)
			} else {
				fmt.Fprintf(&sb, "  participant %d: venue %d\n", p+1, venue)
			}
		}
	}
	return sb.String()
}
