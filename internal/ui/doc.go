// Package ui holds the terminal presentation of todox.
//
// [Notifier] and [Navigator] are the line-oriented sinks used by the CLI: notifications are printed with
// lipgloss styles and route changes become a hint naming the command to run next.
//
// [Model] is a bubbletea program for browsing the todo list. It reads the list through a [TodoBoard] and
// runs toggles and deletes through it, so every mutation passes the same guard and error dispatch as the
// CLI. Notifications raised while the program owns the terminal arrive through a [Feed] and are shown in
// the status line.
//
// Keyboard navigation uses vim-style bindings (j/k, space, d, r, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
