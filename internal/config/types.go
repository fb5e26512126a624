package config

import (
	"gopkg.in/yaml.v3"
)

// Plan represents the full provisioning plan document.
type Plan struct {
	Version     string   `yaml:"version" validate:"required,semver"`
	Name        string   `yaml:"name" validate:"required,min=1,max=100"`
	Description string   `yaml:"description,omitempty"`
	Settings    Settings `yaml:"settings,omitempty"`
	Units       []Unit   `yaml:"units" validate:"required,min=1,dive"`
}

// Settings holds plan-level execution defaults. Command-line flags take
// precedence over these.
type Settings struct {
	ContinueOnError *bool `yaml:"continue_on_error,omitempty"`
	AssumeYes       bool  `yaml:"assume_yes,omitempty"`
	DryRun          bool  `yaml:"dry_run,omitempty"`
}

// Unit describes one idempotent provisioning step. Units run strictly in
// declaration order; Requires only validates that order, it never reorders.
type Unit struct {
	ID          string   `yaml:"id" validate:"required,unit_id"`
	Name        string   `yaml:"name,omitempty"`
	Type        string   `yaml:"type" validate:"required"`
	Interactive bool     `yaml:"interactive,omitempty"`
	Requires    []string `yaml:"requires,omitempty"`

	Package    *PackageUnit    `yaml:",inline,omitempty"`
	AURHelper  *AURHelperUnit  `yaml:",inline,omitempty"`
	AURPackage *AURPackageUnit `yaml:",inline,omitempty"`
	Flatpak    *FlatpakUnit    `yaml:",inline,omitempty"`
	LineInFile *LineInFileUnit `yaml:",inline,omitempty"`
	File       *FileUnit       `yaml:",inline,omitempty"`
	Mount      *MountUnit      `yaml:",inline,omitempty"`
	Service    *ServiceUnit    `yaml:",inline,omitempty"`
	Repo       *RepoUnit       `yaml:",inline,omitempty"`
	Command    *CommandUnit    `yaml:",inline,omitempty"`
}

// Title returns the human-facing name for prompts and reports.
func (u *Unit) Title() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

// UnmarshalYAML customises unit decoding to populate the type-specific
// configuration without key conflicts between types.
func (u *Unit) UnmarshalYAML(value *yaml.Node) error {
	type baseUnit struct {
		ID          string   `yaml:"id"`
		Name        string   `yaml:"name"`
		Type        string   `yaml:"type"`
		Interactive *bool    `yaml:"interactive"`
		Requires    []string `yaml:"requires"`
	}

	var base baseUnit
	if err := value.Decode(&base); err != nil {
		return err
	}

	u.ID = base.ID
	u.Name = base.Name
	u.Type = base.Type
	u.Requires = append([]string(nil), base.Requires...)
	if base.Interactive != nil {
		u.Interactive = *base.Interactive
	} else {
		u.Interactive = true
	}

	u.Package = nil
	u.AURHelper = nil
	u.AURPackage = nil
	u.Flatpak = nil
	u.LineInFile = nil
	u.File = nil
	u.Mount = nil
	u.Service = nil
	u.Repo = nil
	u.Command = nil

	switch base.Type {
	case "package":
		var pkg PackageUnit
		if err := value.Decode(&pkg); err != nil {
			return err
		}
		u.Package = &pkg
	case "aur_helper":
		var helper AURHelperUnit
		if err := value.Decode(&helper); err != nil {
			return err
		}
		u.AURHelper = &helper
	case "aur_package":
		var pkg AURPackageUnit
		if err := value.Decode(&pkg); err != nil {
			return err
		}
		u.AURPackage = &pkg
	case "flatpak":
		var fp FlatpakUnit
		if err := value.Decode(&fp); err != nil {
			return err
		}
		u.Flatpak = &fp
	case "line_in_file":
		var line LineInFileUnit
		if err := value.Decode(&line); err != nil {
			return err
		}
		u.LineInFile = &line
	case "file":
		var file FileUnit
		if err := value.Decode(&file); err != nil {
			return err
		}
		u.File = &file
	case "mount":
		var mnt MountUnit
		if err := value.Decode(&mnt); err != nil {
			return err
		}
		u.Mount = &mnt
	case "service":
		var svc ServiceUnit
		if err := value.Decode(&svc); err != nil {
			return err
		}
		u.Service = &svc
	case "repo":
		var repo RepoUnit
		if err := value.Decode(&repo); err != nil {
			return err
		}
		u.Repo = &repo
	case "command":
		var cmd CommandUnit
		if err := value.Decode(&cmd); err != nil {
			return err
		}
		u.Command = &cmd
	}

	return nil
}

// PackageUnit installs native packages, or runs a full system upgrade when
// Update is set.
type PackageUnit struct {
	Packages []string `yaml:"packages,omitempty" validate:"omitempty,min=1,dive,pkg_name"`
	Update   bool     `yaml:"update,omitempty"`
}

// AURHelperUnit bootstraps the AUR helper by cloning its repository and
// building it with makepkg as an unprivileged user.
type AURHelperUnit struct {
	Helper    string `yaml:"helper,omitempty"`
	BuildUser string `yaml:"build_user" validate:"required"`
	BuildDir  string `yaml:"build_dir,omitempty" validate:"omitempty,abs_path"`
}

// AURPackageUnit installs packages through the AUR helper.
type AURPackageUnit struct {
	Packages []string `yaml:"packages" validate:"required,min=1,dive,pkg_name"`
	Helper   string   `yaml:"helper,omitempty"`
	User     string   `yaml:"user,omitempty"`
}

// FlatpakUnit installs sandboxed applications, adding the remote first when
// configured.
type FlatpakUnit struct {
	Apps      []string `yaml:"apps" validate:"required,min=1"`
	Remote    string   `yaml:"remote,omitempty"`
	RemoteURL string   `yaml:"remote_url,omitempty" validate:"omitempty,url"`
}

// LineInFileUnit ensures a line exists in a file, either appended when
// absent or replacing the first line matching Pattern.
type LineInFileUnit struct {
	File    string `yaml:"file" validate:"required,abs_path"`
	Line    string `yaml:"line" validate:"required"`
	Pattern string `yaml:"pattern,omitempty"`
}

// FileUnit writes a whole configuration file with the desired content and
// mode. Intended for small drop-ins: pacman hooks, sysctl and udev rules.
type FileUnit struct {
	Path    string `yaml:"path" validate:"required,abs_path"`
	Content string `yaml:"content" validate:"required"`
	Mode    string `yaml:"mode,omitempty" validate:"omitempty,file_mode"`
}

// MountUnit manages one fstab entry and mounts it.
type MountUnit struct {
	Device     string `yaml:"device" validate:"required"`
	Mountpoint string `yaml:"mountpoint" validate:"required,abs_path"`
	FSType     string `yaml:"fstype,omitempty"`
	Options    string `yaml:"options,omitempty"`
	Dump       int    `yaml:"dump,omitempty" validate:"omitempty,min=0,max=1"`
	Pass       int    `yaml:"pass,omitempty" validate:"omitempty,min=0,max=2"`
	Fstab      string `yaml:"fstab,omitempty" validate:"omitempty,abs_path"`
}

// ServiceUnit enables a systemd unit.
type ServiceUnit struct {
	Service string `yaml:"service" validate:"required"`
	Now     *bool  `yaml:"now,omitempty"`
}

// StartNow reports whether the service should also be started on enable.
func (s *ServiceUnit) StartNow() bool {
	return s.Now == nil || *s.Now
}

// RepoUnit clones a git repository.
type RepoUnit struct {
	URL         string `yaml:"url" validate:"required,url"`
	Destination string `yaml:"destination" validate:"required,abs_path"`
	Branch      string `yaml:"branch,omitempty"`
	Depth       int    `yaml:"depth,omitempty" validate:"omitempty,min=0"`
}

// CommandUnit executes an arbitrary command with an optional check command
// acting as its guard.
type CommandUnit struct {
	Command string            `yaml:"command" validate:"required,min=1"`
	Check   string            `yaml:"check,omitempty"`
	Shell   string            `yaml:"shell,omitempty"`
	WorkDir string            `yaml:"workdir,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}
