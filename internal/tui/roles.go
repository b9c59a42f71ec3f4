package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ppiankov/pgsecui/internal/models"
)

var roleColumns = []string{"", "Role", "Login", "Superuser", "BypassRLS", "Grants"}

const (
	colMarker = iota
	colName
	colLogin
	colSuperuser
	colBypassRLS
	colGrants
)

// roleTableOffset is the number of lines above the first data row: top
// border, header, header separator.
const roleTableOffset = 3

// dangerMarker flags roles that can bypass row-level security.
const dangerMarker = "!"

// buildRoleRows converts roles to table rows, one per role in report order.
func buildRoleRows(roles []models.RoleInfo) [][]string {
	rows := make([][]string, 0, len(roles))
	for _, role := range roles {
		marker := ""
		if models.IsDangerousRole(role) {
			marker = dangerMarker
		}
		rows = append(rows, []string{
			marker,
			role.Name,
			badge(role.Login),
			badge(role.Superuser),
			badge(role.BypassRLS),
			grantCount(role.Grants),
		})
	}
	return rows
}

func badge(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func grantCount(grants []string) string {
	return fmt.Sprintf("%d grants", len(grants))
}

// renderRoles draws the roles table with dangerous rows highlighted and the
// grants of the row under the cursor below it.
func renderRoles(roles []models.RoleInfo, cursor, width int) string {
	if len(roles) == 0 {
		return styleMuted.Render("No roles")
	}

	rows := buildRoleRows(roles)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(roleColumns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeadCell
			}
			return roleCellStyle(roles[row], rows[row][col], col, row == cursor)
		})

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n")
	if cursor >= 0 && cursor < len(roles) {
		b.WriteString(renderRoleDetail(roles[cursor], width))
	}
	return b.String()
}

// renderRoleDetail lists every grant of the selected role.
func renderRoleDetail(role models.RoleInfo, width int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s  %s", styleSectionTitle.Render(role.Name), grantCount(role.Grants)))
	if models.IsDangerousRole(role) {
		b.WriteString("  ")
		b.WriteString(severityStyle(models.SeverityCritical).Render(dangerReason(role)))
	}
	b.WriteString("\n")

	if len(role.Grants) == 0 {
		b.WriteString(styleMuted.Render("No grants"))
	}
	for i, g := range role.Grants {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  " + g)
	}

	return styleDetailPanel.Width(width).Render(b.String())
}

// roleCellStyle keeps the danger colour on the selected row.
func roleCellStyle(role models.RoleInfo, value string, col int, selected bool) lipgloss.Style {
	dangerous := models.IsDangerousRole(role)
	switch {
	case selected && dangerous:
		return styleSelectedDanger
	case selected:
		return styleSelected
	case dangerous:
		return styleDanger
	case col == colLogin || col == colSuperuser || col == colBypassRLS:
		if value == "Yes" {
			return styleYes
		}
		return styleNo
	default:
		return styleCell
	}
}

func dangerReason(role models.RoleInfo) string {
	switch {
	case role.Superuser && role.BypassRLS:
		return "superuser, bypasses RLS"
	case role.Superuser:
		return "superuser"
	default:
		return "bypasses RLS"
	}
}
