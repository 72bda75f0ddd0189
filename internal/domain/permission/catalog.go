// Package permission holds the fixed catalog of mobile permissions shown on
// the education pages.
package permission

import "errors"

type Platform string

const (
	Android Platform = "android"
	IOS     Platform = "ios"
)

type Level string

const (
	LevelNormal    Level = "normal"
	LevelDangerous Level = "dangerous"
	LevelSensitive Level = "sensitive"
)

var ErrNotFound = errors.New("permission not found")

type Permission struct {
	Name              string   `json:"name"`
	Level             Level    `json:"level"`
	Description       string   `json:"description"`
	Risk              string   `json:"risk"`
	EducationalPoints []string `json:"educational_points"`
}

var catalog = map[Platform]map[string]Permission{
	Android: {
		"READ_EXTERNAL_STORAGE": {
			Name:        "Read External Storage",
			Level:       LevelDangerous,
			Description: "Allows the app to read files from phone storage.",
			Risk:        "high",
			EducationalPoints: []string{
				"This permission lets apps access your documents, photos, and media.",
				"Check which apps actually need this access.",
				"Deny if you don't trust the app.",
			},
		},
		"WRITE_EXTERNAL_STORAGE": {
			Name:        "Write External Storage",
			Level:       LevelDangerous,
			Description: "Allows the app to create and modify files on phone storage.",
			Risk:        "high",
			EducationalPoints: []string{
				"This permission is needed for apps that create/edit files.",
				"Be careful with apps that write to storage without clear purpose.",
				"Always revoke if the app no longer needs it.",
			},
		},
		"ACCESS_FINE_LOCATION": {
			Name:        "Fine Location",
			Level:       LevelDangerous,
			Description: "Accesses precise GPS location.",
			Risk:        "high",
			EducationalPoints: []string{
				"GPS reveals your exact position to apps.",
				"Only enable for navigation and location-based services.",
				"Check settings frequently to disable unnecessary access.",
			},
		},
		"CAMERA": {
			Name:        "Camera",
			Level:       LevelDangerous,
			Description: "Allows access to the device camera.",
			Risk:        "high",
			EducationalPoints: []string{
				"Camera access can record video and photos without you knowing.",
				"Only grant to trusted apps like video chat or camera apps.",
				"Revoke if an app doesn't actively use it.",
			},
		},
		"INTERNET": {
			Name:        "Internet",
			Level:       LevelNormal,
			Description: "Allows the app to access the network.",
			Risk:        "medium",
			EducationalPoints: []string{
				"Most apps need this for basic functionality.",
				"This permission doesn't reveal personal data directly.",
				"Check in-app privacy settings for data sharing.",
			},
		},
	},
	IOS: {
		"Photos": {
			Name:        "Photo Library Access",
			Level:       LevelSensitive,
			Description: "Allows the app to access your photo library.",
			Risk:        "high",
			EducationalPoints: []string{
				"Apps can see all your photos and videos.",
				`iOS now shows "Allow Once" to limit access.`,
				"Use this option unless the app frequently needs photos.",
			},
		},
		"Location": {
			Name:        "Location Services",
			Level:       LevelSensitive,
			Description: "Accesses your location data.",
			Risk:        "high",
			EducationalPoints: []string{
				"Location is tracked and can reveal your home/work.",
				`Choose "Allow While Using App" instead of "Always".`,
				"Disable for apps that don't need real-time location.",
			},
		},
		"Contacts": {
			Name:        "Contacts Access",
			Level:       LevelSensitive,
			Description: "Allows reading your contacts.",
			Risk:        "high",
			EducationalPoints: []string{
				"Your contacts reveal your social network.",
				"Never give this to apps you don't fully trust.",
				"Check what contact data is actually needed.",
			},
		},
	},
}

var tips = []string{
	"Regularly review and revoke app permissions you no longer need.",
	"Deny permission requests unless you understand why the app needs them.",
	"Keep your device OS and apps updated for security patches.",
	"Avoid installing apps from untrusted sources.",
	"Use device lock (PIN, pattern, face/fingerprint) to protect storage.",
	"Be wary of apps requesting multiple sensitive permissions.",
	"Delete sensitive files when you no longer need them.",
	"Use encrypted cloud storage for sensitive backups.",
}

// ParsePlatform maps a query value onto a platform; empty means Android.
// Unknown values are returned as-is and match nothing in the catalog.
func ParsePlatform(s string) Platform {
	if s == "" {
		return Android
	}
	return Platform(s)
}

// All returns every permission documented for platform. Unknown platforms
// yield an empty map.
func All(p Platform) map[string]Permission {
	out := make(map[string]Permission, len(catalog[p]))
	for id, perm := range catalog[p] {
		out[id] = perm
	}
	return out
}

func Get(p Platform, id string) (Permission, error) {
	perm, ok := catalog[p][id]
	if !ok {
		return Permission{}, ErrNotFound
	}
	return perm, nil
}

// Dangerous returns the permissions at the platform's high-risk level:
// "dangerous" on Android, "sensitive" on iOS.
func Dangerous(p Platform) map[string]Permission {
	level := LevelSensitive
	if p == Android {
		level = LevelDangerous
	}
	out := make(map[string]Permission)
	for id, perm := range catalog[p] {
		if perm.Level == level {
			out[id] = perm
		}
	}
	return out
}

func Tips() []string {
	return append([]string(nil), tips...)
}
