package service

import (
	"context"
	"encoding/csv"
	"finance-tracker-client/internal/model"
	"finance-tracker-client/internal/ports"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
)

const pathSeparator = "/"

type StatisticsService struct {
	api ports.StatisticsAPI
}

func NewStatisticsService(api ports.StatisticsAPI) *StatisticsService {
	return &StatisticsService{api: api}
}

// Generate : запрашивает дерево у сервера и пересчитывает итоги групп по детям
func (s *StatisticsService) Generate(ctx context.Context, request model.StatisticsRequest) (*model.StatisticsNode, error) {
	if request.To.Before(request.From) {
		return nil, fmt.Errorf("[StatisticsService] конец периода %s раньше начала %s",
			request.To.Format("2006-01-02"), request.From.Format("2006-01-02"))
	}

	root, err := s.api.Generate(ctx, request)
	if err != nil {
		return nil, err
	}
	if root == nil {
		root = &model.StatisticsNode{}
	}

	Summarize(root)
	return root, nil
}

// Summarize : дополняет итоги групп, пришедших без сумм, суммой по детям.
// Присланные сервером итоги не трогаем: при группировке по тегам запись попадает в несколько детей.
// Пустые (null) дети выбрасываются из дерева.
func Summarize(node *model.StatisticsNode) {
	if node == nil || len(node.Children) == 0 {
		return
	}

	children := node.Children[:0]
	for _, child := range node.Children {
		if child != nil {
			children = append(children, child)
		}
	}
	node.Children = children

	income, cost, count := decimal.Zero, decimal.Zero, 0
	for _, child := range node.Children {
		Summarize(child)
		income = income.Add(child.Income)
		cost = cost.Add(child.Cost)
		count += child.Count
	}

	if node.Count == 0 && node.Income.IsZero() && node.Cost.IsZero() {
		node.Income, node.Cost, node.Count = income, cost, count
	}
}

// Drill : спуск по пути вида "Food/Groceries", сравнение по label или key
func Drill(root *model.StatisticsNode, path string) (*model.StatisticsNode, error) {
	node := root
	for _, segment := range strings.Split(strings.Trim(path, pathSeparator), pathSeparator) {
		if segment == "" {
			continue
		}

		next := findChild(node, segment)
		if next == nil {
			return nil, fmt.Errorf("[StatisticsService] группа %q не найдена в %q", segment, path)
		}
		node = next
	}
	return node, nil
}

func findChild(node *model.StatisticsNode, segment string) *model.StatisticsNode {
	for _, child := range node.Children {
		if child == nil {
			continue
		}
		if strings.EqualFold(child.Label, segment) || child.Key == segment {
			return child
		}
	}
	return nil
}

// RenderOptions : MaxDepth 0 - без ограничения
type RenderOptions struct {
	MaxDepth int
}

func RenderTable(w io.Writer, root *model.StatisticsNode, opts RenderOptions) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Группа\tДоход\tРасход\tБаланс\tЗаписей\t")

	renderRows(tw, root, 0, opts.MaxDepth)
	return tw.Flush()
}

func renderRows(w io.Writer, node *model.StatisticsNode, depth, maxDepth int) {
	if node == nil {
		return
	}
	label := node.Label
	if label == "" {
		label = "Итого"
	}

	fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%d\t\n",
		strings.Repeat("  ", depth), label,
		node.Income.StringFixed(2), node.Cost.StringFixed(2), node.Balance().StringFixed(2), node.Count)

	if maxDepth > 0 && depth+1 > maxDepth {
		return
	}
	for _, child := range node.Children {
		renderRows(w, child, depth+1, maxDepth)
	}
}

// RenderCSV : плоская выгрузка дерева, одна строка на узел с полным путём
func RenderCSV(w io.Writer, root *model.StatisticsNode) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"path", "income", "cost", "balance", "count"}); err != nil {
		return err
	}

	var walk func(node *model.StatisticsNode, path []string) error
	walk = func(node *model.StatisticsNode, path []string) error {
		if node == nil {
			return nil
		}
		if node.Label != "" {
			path = append(path, node.Label)
		}

		record := []string{
			strings.Join(path, pathSeparator),
			node.Income.StringFixed(2),
			node.Cost.StringFixed(2),
			node.Balance().StringFixed(2),
			strconv.Itoa(node.Count),
		}
		if err := writer.Write(record); err != nil {
			return err
		}

		for _, child := range node.Children {
			if err := walk(child, path[:len(path):len(path)]); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root, nil); err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}
