// Copyright © 2024 The ELPS authors

package settings

import (
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Watch reloads settings whenever the settings file used by v changes and
// passes each new snapshot to onChange. A file that fails to decode keeps
// the previous snapshot in effect.
func Watch(v *viper.Viper, onChange func(*Settings)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		reload(v, e, onChange)
	})
	v.WatchConfig()
}

func reload(v *viper.Viper, e fsnotify.Event, onChange func(*Settings)) {
	s, err := Load(v)
	if err != nil {
		log.WithError(err).WithField("file", e.Name).Warn("Ignoring settings change")
		return
	}
	log.WithField("file", e.Name).Info("Settings reloaded")
	onChange(s)
}
