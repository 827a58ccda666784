package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type RoomInfo struct {
	RoomCode string
	RoomLink string
}

func NewRoomInfo(code, link string) *RoomInfo {
	return &RoomInfo{RoomCode: code, RoomLink: link}
}

func (r *RoomInfo) View() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	content := fmt.Sprintf("%s Interview Room Ready!\n\n%s Room Code:  %s\n%s Invite Link: %s",
		IconSuccess,
		IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomCode),
		IconWeb, MutedStyle.Render(r.RoomLink),
	)

	return boxStyle.Render(content)
}

func (r *RoomInfo) Render() {
	fmt.Println(r.View())
}
