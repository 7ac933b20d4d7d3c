package viewport

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/cucumber/godog"
)

// scenarioContext holds state for a single scenario
type scenarioContext struct {
	session *Session
	sink    *recordingSink
	toolErr error
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	c := &scenarioContext{}

	sc.Before(func(ctx context.Context, s *godog.Scenario) (context.Context, error) {
		c.sink = &recordingSink{}
		c.session = nil
		c.toolErr = nil
		return ctx, nil
	})

	sc.Step(`^a series of (\d+) images$`, c.aSeriesOfImages)
	sc.Step(`^the active tool is "([^"]*)"$`, c.theActiveToolIs)
	sc.Step(`^I select the "([^"]*)" tool$`, c.iSelectTheTool)
	sc.Step(`^I go to the next slice (\d+) times$`, c.iGoToTheNextSlice)
	sc.Step(`^I go to the previous slice (\d+) times$`, c.iGoToThePreviousSlice)
	sc.Step(`^I seek to slice (-?\d+)$`, c.iSeekToSlice)
	sc.Step(`^I scroll the wheel by (-?\d+) (\d+) times$`, c.iScrollTheWheel)
	sc.Step(`^I rotate (\d+) times$`, c.iRotate)
	sc.Step(`^I press the pointer at (-?\d+),(-?\d+)$`, c.iPressThePointerAt)
	sc.Step(`^I move the pointer to (-?\d+),(-?\d+)$`, c.iMoveThePointerTo)
	sc.Step(`^I release the pointer at (-?\d+),(-?\d+)$`, c.iReleaseThePointerAt)

	sc.Step(`^the slice index should be (\d+)$`, c.theSliceIndexShouldBe)
	sc.Step(`^the zoom should be about ([\d.]+)$`, c.theZoomShouldBeAbout)
	sc.Step(`^the rotation should be (\d+)$`, c.theRotationShouldBe)
	sc.Step(`^the pan offset should be (-?\d+),(-?\d+)$`, c.thePanOffsetShouldBe)
	sc.Step(`^the window should be ([\d.]+)/([\d.]+)$`, c.theWindowShouldBe)
	sc.Step(`^the tool change should fail$`, c.theToolChangeShouldFail)
	sc.Step(`^the active tool should be "([^"]*)"$`, c.theActiveToolShouldBe)
	sc.Step(`^an annotation from (-?\d+),(-?\d+) to (-?\d+),(-?\d+) should be reported$`, c.anAnnotationShouldBeReported)
}

func (c *scenarioContext) aSeriesOfImages(n int) error {
	c.session = NewSession(newSeries(n), WithAnnotationSink(c.sink))
	return nil
}

func (c *scenarioContext) theActiveToolIs(name string) error {
	mode, err := ParseToolMode(name)
	if err != nil {
		return err
	}
	return c.session.SetTool(mode)
}

func (c *scenarioContext) iSelectTheTool(name string) error {
	mode, err := ParseToolMode(name)
	if err == nil {
		err = c.session.SetTool(mode)
	}
	c.toolErr = err
	return nil
}

func (c *scenarioContext) iGoToTheNextSlice(times int) error {
	for i := 0; i < times; i++ {
		c.session.Next()
	}
	return nil
}

func (c *scenarioContext) iGoToThePreviousSlice(times int) error {
	for i := 0; i < times; i++ {
		c.session.Previous()
	}
	return nil
}

func (c *scenarioContext) iSeekToSlice(i int) error {
	c.session.Seek(i)
	return nil
}

func (c *scenarioContext) iScrollTheWheel(delta, times int) error {
	for i := 0; i < times; i++ {
		out := c.session.Handle(Wheel{DeltaY: float64(delta)})
		if !out.PreventDefault {
			return fmt.Errorf("wheel event did not prevent default")
		}
	}
	return nil
}

func (c *scenarioContext) iRotate(times int) error {
	for i := 0; i < times; i++ {
		c.session.Rotate()
	}
	return nil
}

func (c *scenarioContext) iPressThePointerAt(x, y int) error {
	c.session.Handle(PointerDown{X: float64(x), Y: float64(y)})
	return nil
}

func (c *scenarioContext) iMoveThePointerTo(x, y int) error {
	c.session.Handle(PointerMove{X: float64(x), Y: float64(y)})
	return nil
}

func (c *scenarioContext) iReleaseThePointerAt(x, y int) error {
	c.session.Handle(PointerUp{X: float64(x), Y: float64(y)})
	return nil
}

func (c *scenarioContext) theSliceIndexShouldBe(want int) error {
	if got := c.session.Index(); got != want {
		return fmt.Errorf("expected slice index %d, got %d", want, got)
	}
	return nil
}

func (c *scenarioContext) theZoomShouldBeAbout(want float64) error {
	got := c.session.Transform().Zoom
	if math.Abs(got-want) > 1e-6 {
		return fmt.Errorf("expected zoom about %v, got %v", want, got)
	}
	return nil
}

func (c *scenarioContext) theRotationShouldBe(want int) error {
	if got := c.session.Transform().Rotation; got != want {
		return fmt.Errorf("expected rotation %d, got %d", want, got)
	}
	return nil
}

func (c *scenarioContext) thePanOffsetShouldBe(x, y int) error {
	tr := c.session.Transform()
	if tr.PanX != float64(x) || tr.PanY != float64(y) {
		return fmt.Errorf("expected pan %d,%d, got %v,%v", x, y, tr.PanX, tr.PanY)
	}
	return nil
}

func (c *scenarioContext) theWindowShouldBe(center, width float64) error {
	tr := c.session.Transform()
	if tr.WindowCenter != center || tr.WindowWidth != width {
		return fmt.Errorf("expected window %v/%v, got %v/%v", center, width, tr.WindowCenter, tr.WindowWidth)
	}
	return nil
}

func (c *scenarioContext) theToolChangeShouldFail() error {
	if c.toolErr == nil {
		return fmt.Errorf("expected the tool change to fail")
	}
	return nil
}

func (c *scenarioContext) theActiveToolShouldBe(name string) error {
	if got := c.session.Tool().String(); got != name {
		return fmt.Errorf("expected tool %q, got %q", name, got)
	}
	return nil
}

func (c *scenarioContext) anAnnotationShouldBeReported(x1, y1, x2, y2 int) error {
	if len(c.sink.got) != 1 {
		return fmt.Errorf("expected 1 annotation, got %d", len(c.sink.got))
	}
	a := c.sink.got[0]
	start := Point{X: float64(x1), Y: float64(y1)}
	end := Point{X: float64(x2), Y: float64(y2)}
	if a.Start != start || a.End != end {
		return fmt.Errorf("expected annotation %v -> %v, got %v -> %v", start, end, a.Start, a.End)
	}
	return nil
}
