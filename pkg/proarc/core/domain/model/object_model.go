package model

// Digital object model ids as stored in RELS-EXT hasModel.
const (
	ModelPage                    = "model:page"
	ModelNdkPage                 = "model:ndkpage"
	ModelNdkPeriodical           = "model:ndkperiodical"
	ModelNdkPeriodicalVolume     = "model:ndkperiodicalvolume"
	ModelNdkPeriodicalIssue      = "model:ndkperiodicalissue"
	ModelNdkPeriodicalSupplement = "model:ndkperiodicalsupplement"
	ModelNdkArticle              = "model:ndkarticle"
	ModelNdkChapter              = "model:ndkchapter"
	ModelNdkPicture              = "model:ndkpicture"
	ModelNdkMonographTitle       = "model:ndkmonographtitle"
	ModelNdkMonographVolume      = "model:ndkmonographvolume"
	ModelNdkMonographSupplement  = "model:ndkmonographsupplement"
	ModelNdkCartographic         = "model:ndkcartographic"
	ModelNdkSheetMusic           = "model:ndksheetmusic"

	ModelNdkPhonographCylinder = "model:ndkphonographcylinder"
	ModelNdkMusicDocument      = "model:ndkmusicdocument"
	ModelNdkSong               = "model:ndksong"
	ModelNdkTrack              = "model:ndktrack"
	ModelNdkAudioPage          = "model:ndkaudiopage"

	ModelOldPrintMonographTitle = "model:oldprintmonographtitle"
	ModelOldPrintVolume         = "model:oldprintvolume"
	ModelOldPrintSupplement     = "model:oldprintsupplement"
	ModelOldPrintChapter        = "model:oldprintchapter"
	ModelOldPrintPage           = "model:oldprintpage"

	ModelDesFolder         = "model:desFolder"
	ModelDesInternalRecord = "model:desInternalRecord"
	ModelDesExternalRecord = "model:desExternalRecord"
	ModelDesFile           = "model:desFile"

	// ModelBatch marks the staging root of an import batch.
	ModelBatch = "proarc:batch"
)

// IsPageModel reports whether m is any kind of page.
func IsPageModel(m string) bool {
	switch m {
	case ModelPage, ModelNdkPage, ModelNdkAudioPage, ModelOldPrintPage:
		return true
	}
	return false
}

// IsDesaModel reports whether m belongs to the DESA records family.
func IsDesaModel(m string) bool {
	switch m {
	case ModelDesFolder, ModelDesInternalRecord, ModelDesExternalRecord, ModelDesFile:
		return true
	}
	return false
}

// IsOldPrintModel reports whether m belongs to the old print family.
func IsOldPrintModel(m string) bool {
	switch m {
	case ModelOldPrintMonographTitle, ModelOldPrintVolume, ModelOldPrintSupplement, ModelOldPrintChapter, ModelOldPrintPage:
		return true
	}
	return false
}
