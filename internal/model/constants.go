package model

// KeywordType category of a keyword
type KeywordType string

const (
	KeywordTypeSubjectMatter KeywordType = "Subject matter"
	KeywordTypeActionPose    KeywordType = "Action & pose"
	KeywordTypeThemeMood     KeywordType = "Theme & mood"
	KeywordTypeArrangement   KeywordType = "Arrangement"
)

func (k KeywordType) String() string {
	return string(k)
}

// ValidKeywordType reports whether t is one of the four categories.
func ValidKeywordType(t string) bool {
	switch KeywordType(t) {
	case KeywordTypeSubjectMatter, KeywordTypeActionPose, KeywordTypeThemeMood, KeywordTypeArrangement:
		return true
	}
	return false
}

// VoteAction user vote mutation
type VoteAction string

const (
	VoteActionUpvote   VoteAction = "upvote"
	VoteActionDownvote VoteAction = "downvote"
	VoteActionRemove   VoteAction = "remove"
)

func (v VoteAction) String() string {
	return string(v)
}

// BriefField design brief field name
type BriefField string

const (
	BriefFieldObjective   BriefField = "objective"
	BriefFieldAudience    BriefField = "audience"
	BriefFieldConstraints BriefField = "constraints"
	BriefFieldOthers      BriefField = "others"
)

// ValidBriefField reports whether f names a design brief field.
func ValidBriefField(f string) bool {
	switch BriefField(f) {
	case BriefFieldObjective, BriefFieldAudience, BriefFieldConstraints, BriefFieldOthers:
		return true
	}
	return false
}
