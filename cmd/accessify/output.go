package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"accessify/internal/core"
	"accessify/internal/i18n"
	"accessify/pkg/text"
)

func printDevicesTable(devices []core.Device) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Name", "Type", "Status", "Volume"})

	for i, device := range devices {
		status := "Inactive"
		if device.Active {
			status = color.GreenString("Active")
		}
		if device.Restricted {
			status += " (restricted)"
		}

		t.AppendRow(table.Row{
			i + 1,
			color.New(color.Bold).Sprint(device.Name),
			device.Type,
			status,
			fmt.Sprintf("%d%%", device.Volume),
		})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func printQueueTable(localizer *i18n.Localizer, entries []core.QueueEntry) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Name", "By", "Length", ""})

	for i, entry := range entries {
		marker := ""
		if entry.Role == core.RoleCurrent {
			marker = color.GreenString(localizer.T("playback.resumed"))
		}
		length := ""
		if entry.Duration > 0 {
			length = text.Clock(entry.Duration)
		}

		t.AppendRow(table.Row{
			i + 1,
			color.New(color.Bold).Sprint(entry.Name),
			entry.Artist,
			length,
			marker,
		})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func printItemsTable(title string, items []core.Item) {
	cyan := color.New(color.FgCyan)
	cyan.Println(title)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Name", "By", "URI"})

	for i, item := range items {
		t.AppendRow(table.Row{
			i + 1,
			color.New(color.Bold).Sprint(item.Name),
			item.Subtitle,
			color.HiBlackString(item.URI),
		})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()

	fmt.Printf("Total: %d\n", len(items))
}
