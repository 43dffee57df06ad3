package main

import (
	"fmt"
	"io"

	"github.com/pthm/hxtree"
	"github.com/pthm/hxtree/lib/event"
	"github.com/pthm/hxtree/upload"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// byteCounter discards uploaded bytes, keeping only their count.
type byteCounter struct {
	n int64
}

func (c *byteCounter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// demoUploads reports finished uploads on the window.
type demoUploads struct {
	w      *hxtree.Window
	status *hxtree.Label
}

func (d *demoUploads) UploadSucceeded(e *upload.SucceededEvent) {
	d.status.SetValue(fmt.Sprintf("Received %s (%d bytes)", e.Filename(), e.Length()))
	d.w.ShowNotification(hxtree.NotificationHumanized, "Upload finished", e.Filename())
}

func (d *demoUploads) UploadFailed(e *upload.FailedEvent) {
	d.status.SetValue("Upload failed")
	d.w.ShowNotification(hxtree.NotificationError, "Upload failed", e.Reason().Error())
}

// demoFactory returns the application factory served by the serve command.
func demoFactory(locale language.Tag) hxtree.ApplicationFactory {
	return func(log *zap.Logger) *hxtree.Application {
		app := hxtree.NewApplication(hxtree.WithLogger(log), hxtree.WithLocale(locale))
		w := buildDemoWindow()
		if err := app.AddWindow(w); err != nil {
			// A fresh application has no windows to clash with.
			log.Error("failed to add demo window", zap.Error(err))
		}
		return app
	}
}

func buildDemoWindow() *hxtree.Window {
	greeting := hxtree.NewLabel("Type your name and press enter.")
	name := hxtree.NewTextField("Name")
	name.SetInputPrompt("Ada Lovelace")
	name.SetImmediate(true)
	name.AddEventFunc(hxtree.KindValueChange, func(e event.Event) {
		v, _ := e.(*hxtree.ValueChangeEvent).Value().(string)
		if v == "" {
			greeting.SetValue("Type your name and press enter.")
			return
		}
		greeting.SetValue("Hello, " + v + "!")
	})

	form := hxtree.NewVerticalLayout(name, greeting)
	form.SetMargin(true)
	form.SetSpacing(true)

	status := hxtree.NewLabel("No file uploaded yet.")
	counter := &byteCounter{}
	file := upload.New("Attachment", upload.ReceiverFunc(func(filename, mimeType string) (io.Writer, error) {
		counter.n = 0
		return counter, nil
	}))
	file.SetButtonCaption("Send file")

	files := hxtree.NewHorizontalLayout(file, status)
	files.SetSpacing(true)
	files.AddStyleName("uploads")

	w := hxtree.NewWindow("hxtree demo", form, files)
	listener := &demoUploads{w: w, status: status}
	// demoUploads implements both interfaces, so the typed methods pick one
	// each.
	_, _ = file.AddSucceededListener(listener)
	_, _ = file.AddFailedListener(listener)
	return w
}
