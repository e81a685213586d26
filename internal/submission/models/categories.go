package models

// OwnerField is the column that scopes submissions to their creator.
const OwnerField = "user_id"

const (
	CategoryDuplicateOperator = "duplicate-operator"
	CategoryMisRecorded       = "mis-recorded"
	CategoryAdjudication      = "adjudication"
	CategoryMonthlyBulk       = "monthly-bulk"
)

// Exception types for adjudication requests.
const (
	ExceptionFingerprint = "FINGERPRINT"
	ExceptionIris        = "IRIS"
	ExceptionTotal       = "TOTAL"
)

// Reasons for monthly bulk-deletion requests.
const (
	ReasonMissingBiometricException  = "MISSING_BIOMETRIC_EXCEPTION"
	ReasonNIKWithoutBiometricFingers = "NIK_WITHOUT_BIOMETRIC_FINGERS"
	ReasonDuplicateWithOtherPerson   = "DUPLICATE_WITH_OTHER_PERSON"
	ReasonDuplicateWithUnrecordedNIK = "DUPLICATE_WITH_UNRECORDED_NIK"
	ReasonOneToMany                  = "ONE_TO_MANY"
	ReasonOther                      = "OTHER"
)

func nikField(key, label string, searchable bool) Field {
	return Field{Key: key, Label: label, Kind: KindNIK, Required: true, Searchable: searchable}
}

func nameField(key, label string, searchable bool) Field {
	return Field{Key: key, Label: label, Kind: KindText, Required: true, Searchable: searchable}
}

// DuplicateOperator is a biometric record captured twice under different operators.
func DuplicateOperator() *Category {
	return &Category{
		Name:  CategoryDuplicateOperator,
		Title: "Duplicate recording operator",
		Fields: []Field{
			nikField("duplicate_nik", "Duplicate NIK", true),
			nameField("duplicate_name", "Duplicate name", true),
			nikField("operator_nik", "Operator NIK", true),
			nameField("operator_name", "Operator name", true),
			{Key: "recorded_on", Label: "Recording date", Kind: KindDate, Required: true, NotFuture: true},
		},
	}
}

// MisRecorded is biometric or photo data recorded against the wrong person.
func MisRecorded() *Category {
	return &Category{
		Name:  CategoryMisRecorded,
		Title: "Mis-recorded biometric data",
		Fields: []Field{
			nikField("subject_nik", "Subject NIK", true),
			nameField("subject_name", "Subject name", true),
			nikField("biometric_owner_nik", "Biometric owner NIK", false),
			nameField("biometric_owner_name", "Biometric owner name", false),
			nikField("photo_owner_nik", "Photo owner NIK", false),
			nameField("photo_owner_name", "Photo owner name", false),
			nikField("recording_officer_nik", "Recording officer NIK", false),
			nameField("recording_officer_name", "Recording officer name", false),
			{Key: "recorded_on", Label: "Recording date", Kind: KindDate, Required: true, NotFuture: true},
		},
	}
}

// Adjudication is a request to record a biometric exception.
func Adjudication() *Category {
	return &Category{
		Name:  CategoryAdjudication,
		Title: "Adjudication exception",
		Fields: []Field{
			nikField("subject_nik", "Subject NIK", true),
			nameField("subject_name", "Subject name", true),
			{
				Key:      "exception_type",
				Label:    "Exception type",
				Kind:     KindEnum,
				Required: true,
				Options:  []string{ExceptionFingerprint, ExceptionIris, ExceptionTotal},
			},
			{Key: "submitted_on", Label: "Submission date", Kind: KindDate, Required: true, DefaultToday: true},
		},
	}
}

// MonthlyBulk is a monthly bulk-deletion request.
func MonthlyBulk() *Category {
	return &Category{
		Name:  CategoryMonthlyBulk,
		Title: "Monthly bulk deletion",
		Fields: []Field{
			nikField("subject_nik", "Subject NIK", true),
			nameField("subject_name", "Subject name", true),
			{
				Key:      "reason",
				Label:    "Reason",
				Kind:     KindEnum,
				Required: true,
				Options: []string{
					ReasonMissingBiometricException,
					ReasonNIKWithoutBiometricFingers,
					ReasonDuplicateWithOtherPerson,
					ReasonDuplicateWithUnrecordedNIK,
					ReasonOneToMany,
					ReasonOther,
				},
				OtherOption: ReasonOther,
				OtherField:  "other_reason",
			},
			{Key: "other_reason", Label: "Other reason", Kind: KindText},
			{Key: "submitted_on", Label: "Submission date", Kind: KindDate, Required: true, DefaultToday: true},
		},
	}
}

// DefaultRegistry returns the four record categories handled by the service.
func DefaultRegistry() *Registry {
	return NewRegistry(DuplicateOperator(), MisRecorded(), Adjudication(), MonthlyBulk())
}
