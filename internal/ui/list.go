package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/todox/internal/models"
)

var _ list.Item = todoItem{}

// todoItem wraps [models.Todo] to implement [list.Item].
type todoItem struct {
	todo models.Todo
}

func (i todoItem) FilterValue() string { return i.todo.Title }

func (i todoItem) Title() string {
	mark := " "
	if i.todo.Completed {
		mark = "x"
	}
	return fmt.Sprintf("[%s] %s", mark, i.todo.Title)
}

func (i todoItem) Description() string {
	desc := fmt.Sprintf("#%d • %s", i.todo.ID, i.todo.Status())
	if !i.todo.CreatedAt.IsZero() {
		desc = fmt.Sprintf("%s • %s", desc, i.todo.CreatedAt.Local().Format("2006-01-02"))
	}
	if i.todo.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.todo.Description)
	}
	return desc
}

func todoItems(todos []models.Todo) []list.Item {
	items := make([]list.Item, len(todos))
	for i, t := range todos {
		items[i] = todoItem{todo: t}
	}
	return items
}
