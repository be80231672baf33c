package app

import (
	"errors"
	"fmt"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// templateSetter is implemented by classifiers backed by sign templates, such
// as gesture.StaticMatcher and gesture.DynamicMatcher.
type templateSetter interface {
	SetTemplates([]*gesture.Template)
}

// ReloadTemplates loads every trained sign from the store and replaces the
// templates of both classifiers. Signs without a trained template are
// skipped.
func (a *App) ReloadTemplates() error {
	if a.config.Store == nil {
		return nil
	}
	signs, err := a.config.Store.Signs().List()
	if err != nil {
		return err
	}

	var static, dynamic []*gesture.Template
	for _, sign := range signs {
		template := &gesture.Template{
			ID:        sign.ID,
			Name:      sign.Name,
			Tolerance: sign.Tolerance,
		}

		switch sign.Type {
		case store.SignTypeStatic:
			template.Type = gesture.TypeStatic
			landmarks, err := a.config.Store.Signs().GetLandmarks(sign.ID)
			if err != nil {
				a.logger.Warn("load landmarks", "sign", sign.Name, "error", err)
				continue
			}
			if len(landmarks) == 0 {
				continue
			}
			template.Landmarks = storeLandmarksToDetector(landmarks)
			static = append(static, template)

		case store.SignTypeDynamic:
			template.Type = gesture.TypeDynamic
			path, err := a.config.Store.Signs().GetPath(sign.ID)
			if err != nil {
				a.logger.Warn("load path", "sign", sign.Name, "error", err)
				continue
			}
			if len(path) < 2 {
				continue
			}
			template.Path = storePathToGesture(path)
			dynamic = append(dynamic, template)
		}
	}

	if s, ok := a.config.Static.(templateSetter); ok {
		s.SetTemplates(static)
	}
	if d, ok := a.config.Dynamic.(templateSetter); ok {
		d.SetTemplates(dynamic)
	}

	a.logger.Info("templates loaded", "signs", len(signs), "static", len(static), "dynamic", len(dynamic))
	return nil
}

// SaveTemplate stores a trained template on its sign.
func (a *App) SaveTemplate(t *gesture.Template) error {
	if a.config.Store == nil {
		return errors.New("no store configured")
	}
	switch t.Type {
	case gesture.TypeStatic:
		return a.config.Store.Signs().SetLandmarks(t.ID, detectorLandmarksToStore(t.Landmarks))
	case gesture.TypeDynamic:
		return a.config.Store.Signs().SetPath(t.ID, gesturePathToStore(t.Path))
	default:
		return fmt.Errorf("unknown template type %q", t.Type)
	}
}

func storeLandmarksToDetector(landmarks []store.Landmark) []detector.Point3D {
	points := make([]detector.Point3D, len(landmarks))
	for i, l := range landmarks {
		points[i] = detector.Point3D{X: l.X, Y: l.Y, Z: l.Z}
	}
	return points
}

func detectorLandmarksToStore(points []detector.Point3D) []store.Landmark {
	landmarks := make([]store.Landmark, len(points))
	for i, p := range points {
		landmarks[i] = store.Landmark{X: p.X, Y: p.Y, Z: p.Z}
	}
	return landmarks
}

func storePathToGesture(path []store.PathPoint) []gesture.PathPoint {
	points := make([]gesture.PathPoint, len(path))
	for i, p := range path {
		points[i] = gesture.PathPoint{X: p.X, Y: p.Y, Timestamp: p.TimestampMs}
	}
	return points
}

func gesturePathToStore(points []gesture.PathPoint) []store.PathPoint {
	path := make([]store.PathPoint, len(points))
	for i, p := range points {
		path[i] = store.PathPoint{X: p.X, Y: p.Y, TimestampMs: p.Timestamp}
	}
	return path
}
