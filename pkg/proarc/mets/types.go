package mets

import "github.com/proarc/proarc/pkg/proarc/core/domain/model"

// ElementType is the structural role of an element in a package.
type ElementType string

const (
	TypeTitle           ElementType = "TITLE"
	TypeVolume          ElementType = "VOLUME"
	TypeIssue           ElementType = "ISSUE"
	TypeSupplement      ElementType = "SUPPLEMENT"
	TypeArticle         ElementType = "ARTICLE"
	TypeChapter         ElementType = "CHAPTER"
	TypePicture         ElementType = "PICTURE"
	TypeMonographUnit   ElementType = "MONOGRAPH_UNIT"
	TypeMap             ElementType = "MAP"
	TypeSheetMusic      ElementType = "SHEETMUSIC"
	TypeSoundCollection ElementType = "SOUNDCOLLECTION"
	TypeSoundRecording  ElementType = "SOUNDRECORDING"
	TypeSoundPart       ElementType = "SOUNDPART"
	TypePage            ElementType = "PAGE"
	TypeAudioPage       ElementType = "AUDIOPAGE"
	TypeDesFolder       ElementType = "DES_FOLDER"
	TypeDesRecord       ElementType = "DES_RECORD"
	TypeDesFile         ElementType = "DES_FILE"
	TypeUnknown         ElementType = "UNKNOWN"
)

var modelTypes = map[string]ElementType{
	model.ModelNdkPeriodical:           TypeTitle,
	model.ModelNdkPeriodicalVolume:     TypeVolume,
	model.ModelNdkPeriodicalIssue:      TypeIssue,
	model.ModelNdkPeriodicalSupplement: TypeSupplement,
	model.ModelNdkArticle:              TypeArticle,
	model.ModelNdkChapter:              TypeChapter,
	model.ModelNdkPicture:              TypePicture,
	model.ModelNdkMonographTitle:       TypeTitle,
	model.ModelNdkMonographVolume:      TypeVolume,
	model.ModelNdkMonographSupplement:  TypeSupplement,
	model.ModelNdkCartographic:         TypeMap,
	model.ModelNdkSheetMusic:           TypeSheetMusic,
	model.ModelNdkPhonographCylinder:   TypeSoundRecording,
	model.ModelNdkMusicDocument:        TypeSoundCollection,
	model.ModelNdkSong:                 TypeSoundRecording,
	model.ModelNdkTrack:                TypeSoundPart,
	model.ModelNdkAudioPage:            TypeAudioPage,
	model.ModelNdkPage:                 TypePage,
	model.ModelPage:                    TypePage,
	model.ModelOldPrintMonographTitle:  TypeTitle,
	model.ModelOldPrintVolume:          TypeVolume,
	model.ModelOldPrintSupplement:      TypeSupplement,
	model.ModelOldPrintChapter:         TypeChapter,
	model.ModelOldPrintPage:            TypePage,
	model.ModelDesFolder:               TypeDesFolder,
	model.ModelDesInternalRecord:       TypeDesRecord,
	model.ModelDesExternalRecord:       TypeDesRecord,
	model.ModelDesFile:                 TypeDesFile,
}

// TypeOf classifies a model id.
func TypeOf(modelID string) ElementType {
	if t, ok := modelTypes[modelID]; ok {
		return t
	}
	return TypeUnknown
}

// IsPage reports whether the type carries page content.
func (t ElementType) IsPage() bool {
	return t == TypePage || t == TypeAudioPage
}

// IsTopLevel reports whether the type may be the root of an NDK package.
func (t ElementType) IsTopLevel() bool {
	switch t {
	case TypeTitle, TypeMap, TypeSheetMusic, TypeSoundCollection, TypeSoundRecording:
		return true
	}
	return false
}
