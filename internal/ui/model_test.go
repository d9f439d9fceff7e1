package ui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/smartystreets/goconvey/convey"
)

func TestModel(t *testing.T) {
	Convey("Given a spinner model", t, func() {
		m := newModel("Resolving", func() (any, error) { return 42, nil })

		Convey("It shows the title while running", func() {
			So(m.View(), ShouldContainSubstring, "Resolving")
		})

		Convey("It quits with the task result", func() {
			_, cmd := m.Update(doneMsg{value: 42})
			So(cmd, ShouldNotBeNil)
			So(m.done, ShouldBeTrue)
			So(m.value, ShouldEqual, 42)
			So(m.View(), ShouldBeEmpty)
		})

		Convey("It records task errors", func() {
			boom := errors.New("boom")
			m.Update(doneMsg{err: boom})
			So(m.err, ShouldEqual, boom)
		})

		Convey("Ctrl+C interrupts", func() {
			m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
			So(errors.Is(m.err, ErrInterrupted), ShouldBeTrue)
		})
	})
}

func TestSpin(t *testing.T) {
	Convey("Outside a terminal Spin runs the task directly", t, func() {
		if Interactive() {
			SkipSo("stdout is a terminal")
			return
		}
		v, err := Spin("x", func() (string, error) { return "done", nil })
		So(err, ShouldBeNil)
		So(v, ShouldEqual, "done")
	})
}
