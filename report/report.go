// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package report defines the vocabulary of crash report content fields.
package report

import "sort"

// Field identifies a single piece of content which can be
// included in a crash report.
type Field string

const (
	ReportID             Field = "report_id"
	AppVersionCode       Field = "app_version_code"
	AppVersionName       Field = "app_version_name"
	PackageName          Field = "package_name"
	FilePath             Field = "file_path"
	DeviceModel          Field = "device_model"
	Brand                Field = "brand"
	Product              Field = "product"
	OSVersion            Field = "os_version"
	Build                Field = "build"
	TotalMemSize         Field = "total_mem_size"
	AvailableMemSize     Field = "available_mem_size"
	BuildConfig          Field = "build_config"
	CustomData           Field = "custom_data"
	IsSilent             Field = "is_silent"
	StackTrace           Field = "stack_trace"
	InitialConfiguration Field = "initial_configuration"
	CrashConfiguration   Field = "crash_configuration"
	Display              Field = "display"
	UserComment          Field = "user_comment"
	UserEmail            Field = "user_email"
	UserAppStartDate     Field = "user_app_start_date"
	UserCrashDate        Field = "user_crash_date"
	SystemLog            Field = "system_log"
	InstallationID       Field = "installation_id"
	DeviceFeatures       Field = "device_features"
	Environment          Field = "environment"
	Preferences          Field = "preferences"
)

// FieldSet is a duplicate free collection of [Field]s. Membership
// is the only guarantee it provides, there is no ordering of fields
// within the set.
type FieldSet struct {
	fields map[Field]struct{}
}

// NewFieldSet returns a FieldSet containing the given fields.
func NewFieldSet(fields ...Field) FieldSet {
	fs := FieldSet{
		fields: make(map[Field]struct{}, len(fields)),
	}
	for _, f := range fields {
		fs.fields[f] = struct{}{}
	}
	return fs
}

// Add marks the given field as a member of the set. Adding a
// field which is already a member is a no-op. Add may be called
// on the zero value, the underlying set is allocated on first use.
func (fs *FieldSet) Add(f Field) {
	if fs.fields == nil {
		fs.fields = make(map[Field]struct{})
	}
	fs.fields[f] = struct{}{}
}

// Remove unmarks the given field as a member of the set. Removing
// a field which is not a member is a no-op.
func (fs FieldSet) Remove(f Field) {
	delete(fs.fields, f)
}

// Contains reports whether the given field is a member of the set.
func (fs FieldSet) Contains(f Field) bool {
	_, ok := fs.fields[f]
	return ok
}

// Len returns the number of fields in the set.
func (fs FieldSet) Len() int {
	return len(fs.fields)
}

// Fields returns the members of the set as a sorted slice. Sorting
// is purely for deterministic iteration by callers and implies
// nothing about the set itself.
func (fs FieldSet) Fields() []Field {
	fields := make([]Field, 0, len(fs.fields))
	for f := range fs.fields {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// Clone returns an independent copy of the set.
func (fs FieldSet) Clone() FieldSet {
	clone := FieldSet{
		fields: make(map[Field]struct{}, len(fs.fields)),
	}
	for f := range fs.fields {
		clone.fields[f] = struct{}{}
	}
	return clone
}

// DefaultFields returns the standard base list of report content
// fields used when no custom list is configured.
func DefaultFields() []Field {
	return []Field{
		ReportID,
		AppVersionCode,
		AppVersionName,
		PackageName,
		FilePath,
		DeviceModel,
		Brand,
		Product,
		OSVersion,
		Build,
		TotalMemSize,
		AvailableMemSize,
		BuildConfig,
		CustomData,
		IsSilent,
		StackTrace,
		InitialConfiguration,
		CrashConfiguration,
		Display,
		UserComment,
		UserEmail,
		UserAppStartDate,
		UserCrashDate,
		SystemLog,
		InstallationID,
		DeviceFeatures,
		Environment,
		Preferences,
	}
}

// MailDefaultFields returns the reduced base list of report content
// fields used when reports are delivered to an email address.
func MailDefaultFields() []Field {
	return []Field{
		UserComment,
		OSVersion,
		AppVersionName,
		Brand,
		DeviceModel,
		CustomData,
		StackTrace,
	}
}
